package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"Campus_Community/internal/logging"
	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var wsUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Stream 把轮询搬到服务端：客户端发 START_POLLING/STOP_POLLING，
// 服务端按间隔调用 transfer 并推送 NEW_NOTIFICATIONS；被封禁时推送 FORCE_LOGOUT 后断开。
// 每个连接只有一个定时器，后到的 START_POLLING 覆盖之前的。
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := userIDFromCtx(c)
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写回错误响应
		logging.Log.Warn().Err(err).Uint64("user_id", userID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	cmds := make(chan model.PollMessage)
	go func() {
		defer cancel()
		for {
			var msg model.PollMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logging.Log.Debug().Err(err).Uint64("user_id", userID).Msg("websocket read")
				}
				return
			}
			select {
			case cmds <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	var ticker *time.Ticker
	var tick <-chan time.Time
	stop := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-cmds:
			switch msg.Type {
			case model.MsgStartPolling:
				stop()
				interval := model.ClampInterval(time.Duration(msg.IntervalMS)*time.Millisecond, h.pollInterval)
				ticker = time.NewTicker(interval)
				tick = ticker.C
				if !h.pollOnce(ctx, conn, userID) {
					return
				}
			case model.MsgStopPolling:
				stop()
			default:
				logging.Log.Debug().Str("type", msg.Type).Uint64("user_id", userID).Msg("unknown poll message")
			}
		case <-tick:
			if !h.pollOnce(ctx, conn, userID) {
				return
			}
		}
	}
}

// pollOnce 返回 false 表示连接应当关闭
func (h *NotificationHandler) pollOnce(ctx context.Context, conn *websocket.Conn, userID uint64) bool {
	st, err := h.bans.Enforce(ctx, userID)
	if errors.Is(err, pkg.ErrBanned) {
		_ = writeJSON(conn, model.PollMessage{Type: model.MsgForceLogout, Reason: st.Reason})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "account banned"),
			time.Now().Add(wsWriteTimeout))
		return false
	}
	if err != nil {
		logging.Log.Warn().Err(err).Uint64("user_id", userID).Msg("ban check failed during poll")
		return true
	}

	list, err := h.svc.Transfer(ctx, userID)
	if err != nil {
		logging.Log.Error().Err(err).Uint64("user_id", userID).Msg("notification transfer failed")
		return true
	}
	if len(list) == 0 {
		return true
	}
	if err = writeJSON(conn, model.PollMessage{Type: model.MsgNewNotifications, Notifications: list}); err != nil {
		logging.Log.Warn().Err(err).Uint64("user_id", userID).Int("lost_push", len(list)).Msg("websocket write failed")
		return false
	}
	return true
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}
