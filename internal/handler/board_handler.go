package handler

import (
	"net/http"

	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type BoardHandler struct {
	svc *service.BoardService
}

func NewBoardHandler(svc *service.BoardService) *BoardHandler {
	return &BoardHandler{svc: svc}
}

type createOrgReq struct {
	BoardID     uint64 `json:"board_id"`
	Name        string `json:"name" binding:"required,max=64"`
	Description string `json:"description"`
}

type updateOrgReq struct {
	Name        *string `json:"name" binding:"omitempty,max=64"`
	Description *string `json:"description"`
}

func (r updateOrgReq) toService() service.UpdateOrg {
	return service.UpdateOrg{Name: r.Name, Description: r.Description}
}

func (h *BoardHandler) Create(c *gin.Context) {
	var req createOrgReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	board, err := h.svc.Create(c.Request.Context(), actorFromCtx(c), req.Name, req.Description)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *BoardHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	list, err := h.svc.List(c.Request.Context(), page, size)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *BoardHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	board, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *BoardHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateOrgReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	board, err := h.svc.Update(c.Request.Context(), actorFromCtx(c), id, req.toService())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *BoardHandler) Delete(c *gin.Context) {
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

// UploadImage multipart 字段名为 image
func (h *BoardHandler) UploadImage(c *gin.Context) {
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
