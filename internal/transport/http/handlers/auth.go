package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// AuthHandler exposes signup, login, logout, and profile endpoints.
type AuthHandler struct {
	registration *usecase.RegistrationService
	sessions     *usecase.SessionService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(registration *usecase.RegistrationService, sessions *usecase.SessionService) *AuthHandler {
	return &AuthHandler{registration: registration, sessions: sessions}
}

// RegisterRoutes binds authentication routes. The auth middleware guards
// logout and the profile endpoint.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	r.POST("/signup", h.signup)
	r.POST("/login", h.login)
	r.POST("/logout", requireAuth, h.logout)
	r.GET("/me", requireAuth, h.me)
}

// signup creates a new account and queues the verification email. The
// email_delivered field is advisory: the account exists even when delivery
// failed.
func (h *AuthHandler) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid signup payload"))
		return
	}

	result, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IP:       clientIP(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SignupResponse{
		User:           newUserSummary(result.User),
		EmailDelivered: result.EmailDelivered,
		ExpiresAt:      result.ExpiresAt,
	})
}

// login exchanges credentials for a bearer token bound to the user's
// single active session.
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.sessions.Login(c.Request.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       clientIP(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
		SessionID:   result.Session.ID,
	})
}

// logout closes the caller's own session. The session is taken from the
// authenticated token, never from the request body.
func (h *AuthHandler) logout(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), identity, clientIP(c)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// me returns the authenticated user's profile.
func (h *AuthHandler) me(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.sessions.GetProfile(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserSummary(*user))
}
