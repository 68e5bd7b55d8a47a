package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Campus_Community/internal/model"
	"Campus_Community/internal/repository/memory"
	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	engine  *gin.Engine
	users   *memory.UserRepository
	relayer *service.OutboxRelayer
	bans    *service.BanService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := memory.Open()

	users := memory.NewUserRepository(db)
	tokens := memory.NewTokenRepository(db)
	boards := memory.NewBoardRepository(db)
	clubs := memory.NewClubRepository(db)
	members := memory.NewForumMemberRepository(db)
	posts := memory.NewPostRepository(db)
	subs := memory.NewSubscriptionRepository(db)
	outbox := memory.NewOutboxRepository(db)
	lock := memory.NewLock(db)
	uploadDir := t.TempDir()

	emailSvc := service.NewEmailService(&memory.Mailer{}, memory.NewCodeRepository(db))
	bans := service.NewBanService(users, memory.NewBanCacheRepository(db), tokens)
	pors := service.NewPORService(memory.NewPORRepository(db), clubs, boards, users)
	forums := service.NewForumService(memory.NewForumRepository(db), members, pors)
	uploader := service.NewImageUploader(uploadDir, 1<<20)
	notify := service.NewNotificationService(memory.NewNotificationRepository(db), outbox, subs, members, users, lock, service.NotifyOptions{})

	engine := InitRouter(Deps{
		Users:          service.NewUserService(users, tokens, emailSvc),
		Emails:         emailSvc,
		Bans:           bans,
		Boards:         service.NewBoardService(boards, pors, uploader),
		Clubs:          service.NewClubService(clubs, boards, pors, uploader),
		PORs:           pors,
		Forums:         forums,
		Posts:          service.NewPostService(posts, forums),
		PostLikes:      service.NewPostLikeService(memory.NewPostLikeRepository(db), posts, memory.NewLikeCacheRepository(db), lock),
		Opportunities:  service.NewOpportunityService(memory.NewOpportunityRepository(db), pors),
		Subscriptions:  service.NewSubscriptionService(subs, clubs, boards),
		Notifications:  notify,
		UploadDir:      uploadDir,
		MaxUploadBytes: 1 << 20,
		PollInterval:   time.Second,
	})
	return &testApp{
		engine:  engine,
		users:   users,
		relayer: service.NewOutboxRelayer(outbox, service.DirectSender(notify), 100, 3, time.Second),
		bans:    bans,
	}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// login creates a user and logs in over HTTP, returning the access token and id.
func (a *testApp) login(t *testing.T, name string, role int) (string, uint64) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Username: name, Password: string(hash), Email: name + "@campus.edu"}
	require.NoError(t, a.users.Create(context.Background(), u))
	a.users.SetRole(u.ID, role)

	w := a.do(t, http.MethodPost, "/api/user/login", "", gin.H{"username": name, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pair struct{ AccessToken string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	return pair.AccessToken, u.ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type transferResp struct {
	Notifications []model.Notification `json:"notifications"`
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodPost, "/api/notifications/transfer", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodPost, "/api/notifications/transfer", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodPost, "/api/user/login", "", gin.H{"username": "ghost", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTransferEndpointDeliversOnce(t *testing.T) {
	app := newTestApp(t)
	adminTok, _ := app.login(t, "admin", model.RoleAdmin)
	aliceTok, aliceID := app.login(t, "alice", model.RoleStudent)

	w := app.do(t, http.MethodPost, "/api/admin/notifications", adminTok, gin.H{
		"user_ids": []uint64{aliceID}, "title": "Welcome", "message": "hi", "link": "/boards",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Equal(t, 1, app.relayer.DrainOnce(context.Background()))

	w = app.do(t, http.MethodPost, "/api/notifications/transfer", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[transferResp](t, w)
	require.Len(t, got.Notifications, 1)
	assert.Equal(t, "Welcome", got.Notifications[0].Title)

	w = app.do(t, http.MethodPost, "/api/notifications/transfer", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"notifications":[]}`, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/notifications/unread-count", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1}`, w.Body.String())
}

func TestNotificationsBelongToRecipient(t *testing.T) {
	app := newTestApp(t)
	adminTok, _ := app.login(t, "admin", model.RoleAdmin)
	aliceTok, aliceID := app.login(t, "alice", model.RoleStudent)
	bobTok, _ := app.login(t, "bob", model.RoleStudent)

	w := app.do(t, http.MethodPost, "/api/admin/notifications", adminTok, gin.H{"user_ids": []uint64{aliceID}, "title": "x"})
	require.Equal(t, http.StatusAccepted, w.Code)
	app.relayer.DrainOnce(context.Background())

	w = app.do(t, http.MethodGet, "/api/notifications", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		List []model.Notification `json:"list"`
	}](t, w).List
	require.Len(t, list, 1)
	path := fmt.Sprintf("/api/notifications/%d", list[0].ID)

	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodPut, path+"/read", bobTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, path, bobTok, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodPut, path+"/read", aliceTok, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodPut, "/api/notifications/read-all", aliceTok, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, path, aliceTok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodDelete, "/api/notifications/abc", aliceTok, nil).Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app := newTestApp(t)
	tok, _ := app.login(t, "alice", model.RoleStudent)
	_, bobID := app.login(t, "bob", model.RoleStudent)

	w := app.do(t, http.MethodPost, "/api/admin/notifications", tok, gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/ban", bobID), tok, gin.H{"reason": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = app.do(t, http.MethodPost, "/api/boards", tok, gin.H{"name": "Sports"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBanFlow(t *testing.T) {
	app := newTestApp(t)
	adminTok, _ := app.login(t, "admin", model.RoleAdmin)
	aliceTok, aliceID := app.login(t, "alice", model.RoleStudent)
	statusPath := fmt.Sprintf("/api/users/%d/status", aliceID)

	w := app.do(t, http.MethodGet, statusPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[model.BanStatus](t, w).Banned)

	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/ban", aliceID), adminTok, gin.H{"reason": "spam"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the session is gone
	w = app.do(t, http.MethodGet, "/api/users/me", aliceTok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// status stays readable without a session
	w = app.do(t, http.MethodGet, statusPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[model.BanStatus](t, w)
	assert.True(t, st.Banned)
	assert.Equal(t, "spam", st.Reason)

	w = app.do(t, http.MethodPost, "/api/user/login", "", gin.H{"username": "alice", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"msg":"account banned","logout":true}`, w.Body.String())

	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/unban", aliceID), adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = app.do(t, http.MethodPost, "/api/user/login", "", gin.H{"username": "alice", "password": "secret1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBanGuardRejectsLiveSession(t *testing.T) {
	app := newTestApp(t)
	tok, id := app.login(t, "alice", model.RoleStudent)

	// banned in the database while the session token still exists
	require.NoError(t, app.users.SetBanned(context.Background(), id, true, "cheating"))

	w := app.do(t, http.MethodGet, "/api/notifications", tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"msg":"account banned","logout":true}`, w.Body.String())

	// enforcement also dropped the token
	w = app.do(t, http.MethodGet, "/api/notifications", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCommunityEndpoints(t *testing.T) {
	app := newTestApp(t)
	adminTok, _ := app.login(t, "admin", model.RoleAdmin)
	aliceTok, aliceID := app.login(t, "alice", model.RoleStudent)

	w := app.do(t, http.MethodPost, "/api/boards", adminTok, gin.H{"name": "Technical"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	board := decode[model.Board](t, w)
	w = app.do(t, http.MethodPost, "/api/clubs", adminTok, gin.H{"board_id": board.ID, "name": "Robotics"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	club := decode[model.Club](t, w)

	w = app.do(t, http.MethodPost, "/api/pors", adminTok, gin.H{"user_id": aliceID, "club_id": club.ID, "position": "Coordinator"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = app.do(t, http.MethodPost, "/api/pors", adminTok, gin.H{"user_id": aliceID, "club_id": club.ID, "position": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/pors", aliceID), aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, "/api/subscriptions", adminTok, gin.H{"club_id": club.ID, "action": "subscribe"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"changed":true}`, w.Body.String())

	opp := gin.H{"club_id": club.ID, "title": "Demo day", "kind": "event"}
	w = app.do(t, http.MethodPost, "/api/opportunities", aliceTok, opp)
	assert.Equal(t, http.StatusBadRequest, w.Code, "link is required")
	opp["link"] = "not a url"
	w = app.do(t, http.MethodPost, "/api/opportunities", aliceTok, opp)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	opp["link"] = "https://robotics.example.com/demo"
	w = app.do(t, http.MethodPost, "/api/opportunities", aliceTok, opp)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, fmt.Sprintf("/api/opportunities?club_id=%d&kind=event", club.ID), aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Demo day")

	require.Equal(t, 1, app.relayer.DrainOnce(context.Background()))
	w = app.do(t, http.MethodPost, "/api/notifications/transfer", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[transferResp](t, w)
	require.Len(t, got.Notifications, 1)
	assert.Equal(t, model.KindOpportunity, got.Notifications[0].Kind)

	w = app.do(t, http.MethodGet, fmt.Sprintf("/api/clubs/%d/subscribers", club.ID), aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"next_cursor":0`)
}

func TestForumAndPostEndpoints(t *testing.T) {
	app := newTestApp(t)
	adminTok, _ := app.login(t, "admin", model.RoleAdmin)
	aliceTok, _ := app.login(t, "alice", model.RoleStudent)

	board := decode[model.Board](t, app.do(t, http.MethodPost, "/api/boards", adminTok, gin.H{"name": "Cultural"}))
	w := app.do(t, http.MethodPost, "/api/forums", adminTok, gin.H{"board_id": board.ID, "title": "Open mic"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	forum := decode[model.Forum](t, w)
	assert.True(t, forum.Public)

	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/forums/%d/posts", forum.ID), aliceTok, gin.H{"content": "who is singing?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	post := decode[model.Post](t, w)

	likePath := fmt.Sprintf("/api/posts/%d/like", post.ID)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, likePath, adminTok, nil).Code)
	w = app.do(t, http.MethodGet, likePath, adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"liked":true,"count":1}`, w.Body.String())

	w = app.do(t, http.MethodGet, fmt.Sprintf("/api/forums/%d/posts?page=1&size=10", forum.ID), aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "who is singing?")

	w = app.do(t, http.MethodGet, fmt.Sprintf("/api/forums/%d/members", forum.ID), aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), adminTok, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), adminTok, nil).Code)
}

func TestBoardImageUpload(t *testing.T) {
	app := newTestApp(t)
	adminTok, _ := app.login(t, "admin", model.RoleAdmin)
	board := decode[model.Board](t, app.do(t, http.MethodPost, "/api/boards", adminTok, gin.H{"name": "Sports"}))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "logo.gif")
	require.NoError(t, err)
	_, err = fw.Write([]byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/boards/%d/image", board.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminTok)
	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	url := decode[struct {
		Image string `json:"image"`
	}](t, w).Image
	require.True(t, strings.HasSuffix(url, ".gif"), url)

	w = httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "campus_")
}

func TestNotificationWebsocket(t *testing.T) {
	app := newTestApp(t)
	adminTok, adminID := app.login(t, "admin", model.RoleAdmin)
	aliceTok, aliceID := app.login(t, "alice", model.RoleStudent)

	srv := httptest.NewServer(app.engine)
	defer srv.Close()

	w := app.do(t, http.MethodPost, "/api/admin/notifications", adminTok, gin.H{"user_ids": []uint64{aliceID}, "title": "Live"})
	require.Equal(t, http.StatusAccepted, w.Code)
	app.relayer.DrainOnce(context.Background())

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/notifications/ws?token=" + aliceTok
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.WriteJSON(model.PollMessage{Type: model.MsgStartPolling, IntervalMS: 1000}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg model.PollMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, model.MsgNewNotifications, msg.Type)
	require.Len(t, msg.Notifications, 1)
	assert.Equal(t, "Live", msg.Notifications[0].Title)

	require.NoError(t, app.bans.Ban(context.Background(), adminID, aliceID, "spam"))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	msg = model.PollMessage{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, model.MsgForceLogout, msg.Type)
	assert.Equal(t, "spam", msg.Reason)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestWebsocketRejectsMissingToken(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.engine)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/notifications/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
