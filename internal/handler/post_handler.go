package handler

import (
	"net/http"
	"strconv"
	"time"

	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	svc *service.PostService
}

type CreatePostReq struct {
	Content string `json:"content" binding:"required"`
}

func NewPostHandler(svc *service.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

// CreatePost 创建帖子接口
func (h *PostHandler) CreatePost(c *gin.Context) {
	forumID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}

	post, err := h.svc.CreatePost(c.Request.Context(), actorFromCtx(c), forumID, req.Content)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// ListByForum 获取帖子列表接口（优先游标分页，兼容页码）
func (h *PostHandler) ListByForum(c *gin.Context) {
	forumID, ok := pathID(c, "id")
	if !ok {
		return
	}

	// 游标参数（可选）
	lastIDStr := c.Query("last_id")
	lastTSStr := c.Query("last_created_at")

	// 如果提供了游标，则走游标分页
	if lastIDStr != "" || lastTSStr != "" {
		var lastID uint64
		var lastTS int64
		if lastIDStr != "" {
			if v, e := strconv.ParseUint(lastIDStr, 10, 64); e == nil {
				lastID = v
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid last_id"})
				return
			}
		}
		if lastTSStr != "" {
			if v, e := strconv.ParseInt(lastTSStr, 10, 64); e == nil {
				lastTS = v
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid last_created_at"})
				return
			}
		}

		size, _ := strconv.Atoi(c.Query("size"))

		list, nextID, nextTS, err := h.svc.ListByForumCursor(c.Request.Context(), actorFromCtx(c), forumID, lastID, lastTS, size)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"list":              list,
			"next_last_id":      nextID,
			"next_created_at":   nextTS,
			"next_created_at_s": time.Unix(nextTS, 0).Format(time.RFC3339),
		})
		return
	}

	// 兼容页码查询（不推荐深页使用）
	page, size := pageParams(c)
	list, err := h.svc.ListByForum(c.Request.Context(), actorFromCtx(c), forumID, page, size)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"list": list,
		"page": page,
		"size": size,
	})
}

// DeletePost 删除帖子接口
func (h *PostHandler) DeletePost(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeletePost(c.Request.Context(), actorFromCtx(c), postID); err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
}
