package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"Campus_Community/internal/model"
)

// APIError is a non-2xx answer from the community API.
type APIError struct {
	StatusCode int
	Msg        string
	Logout     bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Msg)
}

// IsLogout reports whether the API told the client to drop its session.
func IsLogout(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Logout && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}

// Client 调用通知转移与封禁状态接口；登录后持有 access token 和用户 id
type Client struct {
	baseURL string
	http    *http.Client

	mu     sync.RWMutex
	token  string
	userID uint64
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// SetSession 使用已有的登录态
func (c *Client) SetSession(token string, userID uint64) {
	c.mu.Lock()
	c.token, c.userID = token, userID
	c.mu.Unlock()
}

func (c *Client) session() (string, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.userID
}

// Login 登录并查询自己的用户 id
func (c *Client) Login(ctx context.Context, username, password string) error {
	var pair struct {
		AccessToken string `json:"AccessToken"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/user/login", "", body, &pair); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	var me model.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", pair.AccessToken, nil, &me); err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	c.SetSession(pair.AccessToken, me.ID)
	return nil
}

// Transfer 拉取新通知；服务端保证同一条通知只返回一次
func (c *Client) Transfer(ctx context.Context) ([]model.Notification, error) {
	token, _ := c.session()
	var out struct {
		Notifications []model.Notification `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/notifications/transfer", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

// Status 查询当前用户的封禁状态
func (c *Client) Status(ctx context.Context) (model.BanStatus, error) {
	_, userID := c.session()
	var st model.BanStatus
	if userID == 0 {
		return st, errors.New("status: no session")
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d/status", userID), "", nil, &st)
	return st, err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Msg    string `json:"msg"`
			Logout bool   `json:"logout"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Msg: e.Msg, Logout: e.Logout}
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
