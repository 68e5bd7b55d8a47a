package handler

import (
	"net/http"

	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type ClubHandler struct {
	svc *service.ClubService
}

func NewClubHandler(svc *service.ClubService) *ClubHandler {
	return &ClubHandler{svc: svc}
}

func (h *ClubHandler) Create(c *gin.Context) {
	var req createOrgReq
	if err := c.ShouldBindJSON(&req); err != nil || req.BoardID == 0 {
		badParams(c)
		return
	}
	club, err := h.svc.Create(c.Request.Context(), actorFromCtx(c), req.BoardID, req.Name, req.Description)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, club)
}

// List 可选 board_id 过滤
func (h *ClubHandler) List(c *gin.Context) {
	boardID, ok := queryUint(c, "board_id")
	if !ok {
		return
	}
	page, size := pageParams(c)
	list, err := h.svc.List(c.Request.Context(), boardID, page, size)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *ClubHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	club, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, club)
}

func (h *ClubHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateOrgReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	club, err := h.svc.Update(c.Request.Context(), actorFromCtx(c), id, req.toService())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, club)
}

func (h *ClubHandler) Delete(c *gin.Context) {
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

func (h *ClubHandler) UploadImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "image required"})
		return
	}
	url, err := h.svc.SetImage(c.Request.Context(), actorFromCtx(c), id, fh)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": url})
}
