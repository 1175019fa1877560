package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/repository"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// errorCase maps a sentinel error to an HTTP status code and response message.
type errorCase struct {
	err     error
	status  int
	message string
}

// errorCases resolves service sentinels in declaration order, so more
// specific sentinels must precede broad ones.
var errorCases = []errorCase{
	{usecase.ErrPasswordPolicyViolation, http.StatusBadRequest, "password does not meet requirements"},
	{usecase.ErrValidation, http.StatusBadRequest, "invalid request"},
	{usecase.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
	{usecase.ErrSessionExpired, http.StatusUnauthorized, "session expired"},
	{usecase.ErrTokenInvalid, http.StatusUnauthorized, "invalid token"},
	{usecase.ErrNotVerified, http.StatusForbidden, "email not verified"},
	{usecase.ErrPermissionDenied, http.StatusForbidden, "permission denied"},
	{usecase.ErrUserNotFound, http.StatusNotFound, "user not found"},
	{usecase.ErrNoActiveSession, http.StatusNotFound, "no active session"},
	{usecase.ErrEmailTaken, http.StatusConflict, "email already registered"},
	{usecase.ErrSessionActive, http.StatusConflict, "session already active"},
	{usecase.ErrAlreadyVerified, http.StatusConflict, "email already verified"},
	{usecase.ErrTokenUsed, http.StatusConflict, "token already used"},
	{usecase.ErrTokenExpired, http.StatusGone, "token expired"},
	{repository.ErrUnavailable, http.StatusServiceUnavailable, "service temporarily unavailable"},
}

// respondError translates a service error into the matching HTTP response.
func respondError(c *gin.Context, err error) {
	for _, cs := range errorCases {
		if errors.Is(err, cs.err) {
			c.JSON(cs.status, NewErrorResponse(c, cs.message))
			return
		}
	}

	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal error"))
}

// clientIP returns the caller address as a nullable string for audit trails.
func clientIP(c *gin.Context) *string {
	ip := c.ClientIP()
	if ip == "" {
		return nil
	}
	return &ip
}
