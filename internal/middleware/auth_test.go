package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	current map[uint64]string
}

func (f *fakeSessions) CheckSession(_ context.Context, userID uint64, token string) error {
	if f.current[userID] != token {
		return pkg.ErrUnauthorized
	}
	return nil
}

type fakeBans struct {
	err error
}

func (f *fakeBans) Enforce(_ context.Context, userID uint64) (model.BanStatus, error) {
	return model.BanStatus{UserID: userID, Banned: f.err != nil}, f.err
}

func newEngine(sessions SessionChecker, bans BanEnforcer, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(sessions), BanGuard(bans)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "role": Role(c)})
	})
	r.GET("/me", handlers...)
	return r
}

func get(r *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func issue(t *testing.T, userID uint64, role int) string {
	t.Helper()
	pair, err := pkg.GeneratePair(userID, role)
	require.NoError(t, err)
	return pair.AccessToken
}

func TestAuthMiddleware(t *testing.T) {
	tok := issue(t, 7, model.RoleStudent)
	r := newEngine(&fakeSessions{current: map[uint64]string{7: tok}}, &fakeBans{})

	cases := []struct {
		name   string
		path   string
		header string
		code   int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Token " + tok, http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"bearer header", "/me", "Bearer " + tok, http.StatusOK},
		{"query fallback", "/me?token=" + tok, "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, tc.path, tc.header)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
		})
	}

	w := get(r, "/me", "Bearer "+tok)
	assert.JSONEq(t, `{"user_id":7,"role":0}`, w.Body.String())
}

func TestAuthMiddlewareRejectsReplacedSession(t *testing.T) {
	tok := issue(t, 7, model.RoleStudent)
	r := newEngine(&fakeSessions{current: map[uint64]string{7: "a-newer-token"}}, &fakeBans{})

	w := get(r, "/me", "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"msg":"Account has been logging elsewhere"}`, w.Body.String())
}

func TestBanGuard(t *testing.T) {
	tok := issue(t, 9, model.RoleStudent)
	sessions := &fakeSessions{current: map[uint64]string{9: tok}}

	w := get(newEngine(sessions, &fakeBans{err: pkg.ErrBanned}), "/me", "Bearer "+tok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"msg":"account banned","logout":true}`, w.Body.String())

	w = get(newEngine(sessions, &fakeBans{err: pkg.ErrNotFound}), "/me", "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"logout":true`)

	w = get(newEngine(sessions, &fakeBans{err: assert.AnError}), "/me", "Bearer "+tok)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAdminOnly(t *testing.T) {
	student := issue(t, 1, model.RoleStudent)
	admin := issue(t, 2, model.RoleAdmin)
	r := newEngine(&fakeSessions{current: map[uint64]string{1: student, 2: admin}}, &fakeBans{}, AdminOnly())

	assert.Equal(t, http.StatusForbidden, get(r, "/me", "Bearer "+student).Code)
	assert.Equal(t, http.StatusOK, get(r, "/me", "Bearer "+admin).Code)
}
