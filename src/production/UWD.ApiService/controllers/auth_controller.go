package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.ApiService/middleware"
	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
	session "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Session"
)

// AuthController handles authentication requests
type AuthController struct {
	sessions *session.Authenticator
	log      *logger.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(sessions *session.Authenticator, log *logger.Logger) *AuthController {
	return &AuthController{
		sessions: sessions,
		log:      log.WithComponent("auth"),
	}
}

// RegisterRoutes registers auth routes
func (h *AuthController) RegisterRoutes(router *gin.Engine, auth *middleware.SessionMiddleware) {
	router.POST("/auth/login", h.Login)
	router.POST("/auth/logout", auth.Authenticate(), h.Logout)
}

// Login handles user login. The failure response never distinguishes an
// unknown user from a wrong secret.
func (h *AuthController) Login(c *gin.Context) {
	var req api_models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api_models.LoginResponse{OK: false, Error: "MalformedInput"})
		return
	}

	s, err := h.sessions.Login(req.UserID, req.Secret)
	if err != nil {
		// Outcome logging mirrors the platform's access log: user and
		// outcome only, never the secret.
		h.log.WithField("user_id", req.UserID).Warn("login failed")
		c.JSON(http.StatusUnauthorized, api_models.LoginResponse{OK: false, Error: "authentication failed"})
		return
	}

	h.log.WithField("user_id", req.UserID).Info("login succeeded")
	c.JSON(http.StatusOK, api_models.LoginResponse{OK: true, Token: s.Token})
}

// Logout destroys the caller's session
func (h *AuthController) Logout(c *gin.Context) {
	h.sessions.Logout(middleware.TokenFromContext(c))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
