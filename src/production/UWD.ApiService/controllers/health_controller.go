package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	hub "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Hub"
	registry "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Registry"
	session "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Session"
)

// HealthController handles health and stats requests
type HealthController struct {
	registry *registry.Registry
	hub      *hub.Hub
	sessions *session.Authenticator
}

// NewHealthController creates a new health controller
func NewHealthController(reg *registry.Registry, h *hub.Hub, sessions *session.Authenticator) *HealthController {
	return &HealthController{
		registry: reg,
		hub:      h,
		sessions: sessions,
	}
}

// RegisterRoutes registers the health routes with Gin
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health/live", c.HealthLive)
	router.GET("/health/ready", c.HealthReady)
}

func (c *HealthController) HealthLive(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (c *HealthController) HealthReady(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":      "ready",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"sensors":     c.registry.Len(),
		"subscribers": c.hub.SubscriberCount(),
		"sessions":    c.sessions.SessionCount(),
	})
}
