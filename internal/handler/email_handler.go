package handler

import (
	"net/http"

	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	svc *service.EmailService
}

type SendCodeReq struct {
	Email string `json:"email" binding:"required,email"`
}

func NewEmailHandler(svc *service.EmailService) *EmailHandler {
	return &EmailHandler{svc: svc}
}

func validScope(scope string) bool {
	return scope == service.ScopeRegister || scope == service.ScopeReset
}

// SendCode POST /api/email/:scope/code
func (h *EmailHandler) SendCode(c *gin.Context) {
	var req SendCodeReq
	scope := c.Param("scope")
	if err := c.ShouldBindJSON(&req); err != nil || !validScope(scope) {
		badParams(c)
		return
	}

	if err := h.svc.SendCode(c.Request.Context(), scope, req.Email); err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Send code successfully"})
}
