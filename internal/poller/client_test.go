package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"Campus_Community/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer speaks the subset of the community API the poller uses.
type fakeServer struct {
	mu      sync.Mutex
	token   string
	userID  uint64
	pending []model.Notification
	banned  bool
	reason  string
	revoked bool
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}
	authed := func(w http.ResponseWriter, r *http.Request) bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.revoked || r.Header.Get("Authorization") != "Bearer "+f.token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "invalid or expired token"})
			return false
		}
		if f.banned {
			writeJSON(w, http.StatusForbidden, map[string]any{"msg": "account banned", "logout": true})
			return false
		}
		return true
	}

	mux.HandleFunc("POST /api/user/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "invalid username or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"AccessToken": f.token, "RefreshToken": "r"})
	})
	mux.HandleFunc("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		if authed(w, r) {
			writeJSON(w, http.StatusOK, model.User{ID: f.userID, Username: "alice"})
		}
	})
	mux.HandleFunc("POST /api/notifications/transfer", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r) {
			return
		}
		f.mu.Lock()
		out := f.pending
		f.pending = []model.Notification{}
		f.mu.Unlock()
		if out == nil {
			out = []model.Notification{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
	})
	mux.HandleFunc("GET /api/users/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		st := model.BanStatus{UserID: f.userID, Banned: f.banned, Reason: f.reason}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, st)
	})
	return mux
}

func (f *fakeServer) push(n ...model.Notification) {
	f.mu.Lock()
	f.pending = append(f.pending, n...)
	f.mu.Unlock()
}

func (f *fakeServer) ban(reason string) {
	f.mu.Lock()
	f.banned, f.reason = true, reason
	f.mu.Unlock()
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	f := &fakeServer{token: "tok-42", userID: 42}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return f, srv
}

func TestClientLoginTransferStatus(t *testing.T) {
	f, srv := newFakeServer(t)
	c := NewClient(srv.URL+"/", nil)
	ctx := context.Background()

	err := c.Login(ctx, "alice", "wrong")
	require.Error(t, err)
	assert.False(t, IsLogout(err))

	require.NoError(t, c.Login(ctx, "alice", "secret1"))
	token, id := c.session()
	assert.Equal(t, "tok-42", token)
	assert.Equal(t, uint64(42), id)

	f.push(model.Notification{ID: 1, Title: "hello"})
	list, err := c.Transfer(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Title)

	list, err = c.Transfer(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Banned)
}

func TestClientErrors(t *testing.T) {
	f, srv := newFakeServer(t)
	c := NewClient(srv.URL, srv.Client())
	ctx := context.Background()

	_, err := c.Status(ctx)
	assert.Error(t, err, "status needs a user id")

	c.SetSession("stale", 42)
	_, err = c.Transfer(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.False(t, IsLogout(err))

	c.SetSession("tok-42", 42)
	f.ban("spam")
	_, err = c.Transfer(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "account banned", apiErr.Msg)
	assert.True(t, IsLogout(err))

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Banned)
	assert.Equal(t, "spam", st.Reason)
}

func TestIsLogout(t *testing.T) {
	assert.False(t, IsLogout(nil))
	assert.False(t, IsLogout(assert.AnError))
	assert.False(t, IsLogout(&APIError{StatusCode: http.StatusInternalServerError, Logout: true}))
	assert.True(t, IsLogout(&APIError{StatusCode: http.StatusUnauthorized, Logout: true}))
}
