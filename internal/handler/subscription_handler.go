package handler

import (
	"net/http"
	"strconv"

	"Campus_Community/internal/model"
	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	svc *service.SubscriptionService
}

func NewSubscriptionHandler(svc *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

type subscribeReq struct {
	ClubID  uint64 `json:"club_id"`
	BoardID uint64 `json:"board_id"`
	Action  string `json:"action" binding:"required,oneof=subscribe unsubscribe"`
}

// Subscribe 订阅/取消订阅接口
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req subscribeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	scope := model.Scope{ClubID: req.ClubID, BoardID: req.BoardID}
	changed, err := h.svc.Apply(c.Request.Context(), userIDFromCtx(c), scope, req.Action)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// ListMine 我的订阅
func (h *SubscriptionHandler) ListMine(c *gin.Context) {
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, next, err := h.svc.ListMine(c.Request.Context(), userIDFromCtx(c), cursor, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows, "next_cursor": next})
}

func (h *SubscriptionHandler) ClubSubscribers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.listSubscribers(c, model.Scope{ClubID: id})
}

func (h *SubscriptionHandler) BoardSubscribers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.listSubscribers(c, model.Scope{BoardID: id})
}

func (h *SubscriptionHandler) listSubscribers(c *gin.Context, scope model.Scope) {
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, next, err := h.svc.ListSubscribers(c.Request.Context(), scope, cursor, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows, "next_cursor": next})
}
