package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/usecase"
)

// VerificationHandler exposes email verification endpoints.
type VerificationHandler struct {
	registration *usecase.RegistrationService
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(registration *usecase.RegistrationService) *VerificationHandler {
	return &VerificationHandler{registration: registration}
}

// RegisterRoutes binds verification routes.
func (h *VerificationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/email", h.verifyEmail)
	r.POST("/resend", h.resend)
}

// verifyEmail consumes the mailed verification token. The token arrives as
// a query parameter because the endpoint is opened from an email link.
func (h *VerificationHandler) verifyEmail(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token query parameter is required"))
		return
	}

	if err := h.registration.VerifyEmail(c.Request.Context(), token, clientIP(c)); err != nil {
		// A token that never matches a stored artifact is a malformed
		// request here, not a failed authentication.
		if errors.Is(err, usecase.ErrTokenInvalid) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification token"))
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "email verified"})
}

// resend issues a fresh verification email for an unverified account.
func (h *VerificationHandler) resend(c *gin.Context) {
	var req ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid resend payload"))
		return
	}

	result, err := h.registration.ResendVerification(c.Request.Context(), req.Email, clientIP(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResendVerificationResponse{
		EmailDelivered: result.EmailDelivered,
		ExpiresAt:      result.ExpiresAt,
	})
}
