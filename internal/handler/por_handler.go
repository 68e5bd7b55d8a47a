package handler

import (
	"net/http"

	"Campus_Community/internal/model"
	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type PORHandler struct {
	svc *service.PORService
}

func NewPORHandler(svc *service.PORService) *PORHandler {
	return &PORHandler{svc: svc}
}

type grantPORReq struct {
	UserID           uint64 `json:"user_id" binding:"required"`
	ClubID           uint64 `json:"club_id"`
	BoardID          uint64 `json:"board_id"`
	Position         string `json:"position" binding:"required,max=64"`
	CanPost          *bool  `json:"can_post"`
	CanManageMembers bool   `json:"can_manage_members"`
	CanManageForums  bool   `json:"can_manage_forums"`
}

type updatePORReq struct {
	Position         *string `json:"position" binding:"omitempty,max=64"`
	CanPost          *bool   `json:"can_post"`
	CanManageMembers *bool   `json:"can_manage_members"`
	CanManageForums  *bool   `json:"can_manage_forums"`
}

// Grant 同一用户在同一 club/board 只能有一个 POR，重复返回 409
func (h *PORHandler) Grant(c *gin.Context) {
	var req grantPORReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	canPost := true
	if req.CanPost != nil {
		canPost = *req.CanPost
	}
	por, err := h.svc.Grant(c.Request.Context(), actorFromCtx(c), service.GrantPOR{
		UserID:           req.UserID,
		Scope:            model.Scope{ClubID: req.ClubID, BoardID: req.BoardID},
		Position:         req.Position,
		CanPost:          canPost,
		CanManageMembers: req.CanManageMembers,
		CanManageForums:  req.CanManageForums,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, por)
}

func (h *PORHandler) ListByScope(c *gin.Context) {
	scope, ok := scopeQuery(c)
	if !ok {
		return
	}
	list, err := h.svc.ListByScope(c.Request.Context(), scope)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *PORHandler) ListByUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListByUser(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *PORHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updatePORReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	por, err := h.svc.Update(c.Request.Context(), actorFromCtx(c), id, service.UpdatePOR{
		Position:         req.Position,
		CanPost:          req.CanPost,
		CanManageMembers: req.CanManageMembers,
		CanManageForums:  req.CanManageForums,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, por)
}

func (h *PORHandler) Revoke(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Revoke(c.Request.Context(), actorFromCtx(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "revoked"})
}
