package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/usecase"
)

// PasswordHandler exposes the password reset flow.
type PasswordHandler struct {
	resets *usecase.PasswordResetService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(resets *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

// RegisterRoutes binds password reset routes.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/forgot", h.forgot)
	r.POST("/reset", h.reset)
}

// forgot mails a single-use reset token to the account's address. The
// response is 202 because delivery happens after the token is stored.
func (h *PasswordHandler) forgot(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid forgot password payload"))
		return
	}

	result, err := h.resets.RequestReset(c.Request.Context(), req.Email, clientIP(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, ForgotPasswordResponse{
		Message:        "password reset email queued",
		EmailDelivered: result.EmailDelivered,
		ExpiresAt:      result.ExpiresAt,
	})
}

// reset consumes the mailed token and installs the new password in the
// same transaction.
func (h *PasswordHandler) reset(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset password payload"))
		return
	}

	if err := h.resets.ConfirmReset(c.Request.Context(), req.Token, req.NewPassword, clientIP(c)); err != nil {
		if errors.Is(err, usecase.ErrTokenInvalid) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset token"))
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
