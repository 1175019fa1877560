package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// AdminHandler exposes administrative session operations.
type AdminHandler struct {
	sessions *usecase.SessionService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(sessions *usecase.SessionService) *AdminHandler {
	return &AdminHandler{sessions: sessions}
}

// RegisterRoutes binds admin routes behind the auth middleware. The admin
// flag itself is checked inside the service, so a non-admin caller gets
// 403 rather than 401.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	r.POST("/force-logout", requireAuth, h.forceLogout)
}

// forceLogout revokes the target user's active session on behalf of an
// administrator.
func (h *AdminHandler) forceLogout(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ForceLogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid force logout payload"))
		return
	}

	if err := h.sessions.ForceLogout(c.Request.Context(), identity, req.UserID, clientIP(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ForceLogoutResponse{Message: "session revoked"})
}
