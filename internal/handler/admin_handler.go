package handler

import (
	"net/http"

	"Campus_Community/internal/metrics"
	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	bans   *service.BanService
	notify *service.NotificationService
}

func NewAdminHandler(bans *service.BanService, notify *service.NotificationService) *AdminHandler {
	return &AdminHandler{bans: bans, notify: notify}
}

type banReq struct {
	Reason string `json:"reason" binding:"max=255"`
}

type broadcastReq struct {
	UserIDs []uint64 `json:"user_ids"`
	Title   string   `json:"title" binding:"required,max=200"`
	Message string   `json:"message"`
	Link    string   `json:"link" binding:"omitempty,max=512"`
}

// Ban 封禁后立即删除登录态
func (h *AdminHandler) Ban(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req banReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badParams(c)
			return
		}
	}
	if err := h.bans.Ban(c.Request.Context(), userIDFromCtx(c), id, req.Reason); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "banned"})
}

func (h *AdminHandler) Unban(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.bans.Unban(c.Request.Context(), userIDFromCtx(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "unbanned"})
}

// Broadcast user_ids 为空时发送给全体用户
func (h *AdminHandler) Broadcast(c *gin.Context) {
	var req broadcastReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	err := h.notify.Broadcast(c.Request.Context(), actorFromCtx(c), service.Broadcast{
		UserIDs: req.UserIDs,
		Title:   req.Title,
		Message: req.Message,
		Link:    req.Link,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"msg": "queued"})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.GetSnapshot())
}
