package handler

import (
	"net/http"
	"time"

	"Campus_Community/internal/model"
	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type OpportunityHandler struct {
	svc *service.OpportunityService
}

func NewOpportunityHandler(svc *service.OpportunityService) *OpportunityHandler {
	return &OpportunityHandler{svc: svc}
}

type createOpportunityReq struct {
	ClubID      uint64     `json:"club_id"`
	BoardID     uint64     `json:"board_id"`
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description"`
	Kind        string     `json:"kind" binding:"required,oneof=event job"`
	Link        string     `json:"link" binding:"required,max=512"`
	Deadline    *time.Time `json:"deadline"`
}

type updateOpportunityReq struct {
	Title       *string    `json:"title" binding:"omitempty,max=200"`
	Description *string    `json:"description"`
	Kind        *string    `json:"kind" binding:"omitempty,oneof=event job"`
	Link        *string    `json:"link" binding:"omitempty,max=512"`
	Deadline    *time.Time `json:"deadline"`
}

func (h *OpportunityHandler) Create(c *gin.Context) {
	var req createOpportunityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	o, err := h.svc.Create(c.Request.Context(), actorFromCtx(c), service.CreateOpportunity{
		Scope:       model.Scope{ClubID: req.ClubID, BoardID: req.BoardID},
		Title:       req.Title,
		Description: req.Description,
		Kind:        req.Kind,
		Link:        req.Link,
		Deadline:    req.Deadline,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// List 支持 club_id/board_id/kind 过滤，按创建时间倒序
func (h *OpportunityHandler) List(c *gin.Context) {
	scope, ok := scopeQuery(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	list, err := h.svc.List(c.Request.Context(), scope, c.Query("kind"), page, size)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *OpportunityHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OpportunityHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateOpportunityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	o, err := h.svc.Update(c.Request.Context(), actorFromCtx(c), id, service.UpdateOpportunity{
		Title:       req.Title,
		Description: req.Description,
		Kind:        req.Kind,
		Link:        req.Link,
		Deadline:    req.Deadline,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OpportunityHandler) Delete(c *gin.Context) {
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
