package handler

import (
	"net/http"
	"strconv"
	"time"

	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	svc          *service.NotificationService
	bans         *service.BanService
	pollInterval time.Duration
}

func NewNotificationHandler(svc *service.NotificationService, bans *service.BanService, pollInterval time.Duration) *NotificationHandler {
	return &NotificationHandler{svc: svc, bans: bans, pollInterval: pollInterval}
}

// Transfer 返回本次新投递的通知；同一条通知不会被两次返回
func (h *NotificationHandler) Transfer(c *gin.Context) {
	list, err := h.svc.Transfer(c.Request.Context(), userIDFromCtx(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) List(c *gin.Context) {
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, next, err := h.svc.List(c.Request.Context(), userIDFromCtx(c), cursor, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows, "next_cursor": next})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), userIDFromCtx(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), userIDFromCtx(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), userIDFromCtx(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userIDFromCtx(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
}
