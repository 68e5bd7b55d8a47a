package handler

import (
	"net/http"

	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type PostLikeHandler struct {
	svc *service.PostLikeService
}

func NewPostLikeHandler(svc *service.PostLikeService) *PostLikeHandler {
	return &PostLikeHandler{svc: svc}
}

func (h *PostLikeHandler) Like(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	changed, err := h.svc.Like(c.Request.Context(), userIDFromCtx(c), pid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (h *PostLikeHandler) Unlike(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	changed, err := h.svc.Unlike(c.Request.Context(), userIDFromCtx(c), pid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// State 当前用户是否点赞以及点赞数
func (h *PostLikeHandler) State(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	liked, err := h.svc.IsLiked(c.Request.Context(), userIDFromCtx(c), pid)
	if err != nil {
		respondErr(c, err)
		return
	}
	cnt, err := h.svc.GetCountWithLock(c.Request.Context(), pid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "count": cnt})
}
