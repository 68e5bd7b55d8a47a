package handler

import (
	"net/http"

	"Campus_Community/internal/model"
	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type ForumHandler struct {
	svc *service.ForumService
}

func NewForumHandler(svc *service.ForumService) *ForumHandler {
	return &ForumHandler{svc: svc}
}

type createForumReq struct {
	ClubID      uint64 `json:"club_id"`
	BoardID     uint64 `json:"board_id"`
	Title       string `json:"title" binding:"required,max=128"`
	Description string `json:"description"`
	Public      *bool  `json:"public"`
}

type joinForumReq struct {
	UserID uint64 `json:"user_id"`
}

func (h *ForumHandler) Create(c *gin.Context) {
	var req createForumReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	public := true
	if req.Public != nil {
		public = *req.Public
	}
	forum, err := h.svc.Create(c.Request.Context(), actorFromCtx(c), service.CreateForum{
		Scope:       model.Scope{ClubID: req.ClubID, BoardID: req.BoardID},
		Title:       req.Title,
		Description: req.Description,
		Public:      public,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, forum)
}

func (h *ForumHandler) List(c *gin.Context) {
	scope, ok := scopeQuery(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	list, err := h.svc.List(c.Request.Context(), scope, page, size)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *ForumHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	forum, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, forum)
}

func (h *ForumHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actorFromCtx(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
}

func (h *ForumHandler) Members(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, size := pageParams(c)
	list, err := h.svc.Members(c.Request.Context(), actorFromCtx(c), id, page, size)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

// Join 空 body 表示自己加入；带 user_id 时由版主拉人
func (h *ForumHandler) Join(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req joinForumReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badParams(c)
			return
		}
	}
	if err := h.svc.Join(c.Request.Context(), actorFromCtx(c), id, req.UserID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "joined"})
}

func (h *ForumHandler) Leave(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Leave(c.Request.Context(), actorFromCtx(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "left"})
}

func (h *ForumHandler) Kick(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	if err := h.svc.Kick(c.Request.Context(), actorFromCtx(c), id, userID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "removed"})
}
