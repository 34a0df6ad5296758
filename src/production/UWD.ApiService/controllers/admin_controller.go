package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.ApiService/middleware"
	access "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Access"
	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	auth_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/auth"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
	session "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Session"
)

// AdminController handles user provisioning and grant administration.
type AdminController struct {
	sessions *session.Authenticator
	acl      *access.Store
	log      *logger.Logger
}

// NewAdminController creates a new admin controller
func NewAdminController(sessions *session.Authenticator, acl *access.Store, log *logger.Logger) *AdminController {
	return &AdminController{
		sessions: sessions,
		acl:      acl,
		log:      log.WithComponent("admin"),
	}
}

// RegisterRoutes registers admin routes
func (h *AdminController) RegisterRoutes(router *gin.Engine, auth *middleware.SessionMiddleware) {
	group := router.Group("/admin", auth.Authenticate(), auth.RequireAdmin())
	group.POST("/users", h.AddUser)
	group.POST("/grants", h.Grant)
	group.DELETE("/grants", h.Revoke)
}

// AddUser provisions a user and their initial sensor grants. Re-adding an
// existing user replaces the secret and adds to the grants.
func (h *AdminController) AddUser(c *gin.Context) {
	var req api_models.AddUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "MalformedInput"})
		return
	}

	if err := h.sessions.AddUser(req.UserID, req.Secret, auth_models.RoleUser); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to add user"})
		return
	}
	if len(req.SensorIDs) > 0 {
		h.acl.Grant(req.UserID, req.SensorIDs)
	}

	h.log.WithField("user_id", req.UserID).WithField("sensors", req.SensorIDs).Info("user provisioned")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Grant adds View and Mutate grants for an existing user.
func (h *AdminController) Grant(c *gin.Context) {
	var req api_models.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "MalformedInput"})
		return
	}
	if !h.sessions.HasUser(req.UserID) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "NotFound"})
		return
	}

	h.acl.Grant(req.UserID, req.SensorIDs)
	h.log.WithField("user_id", req.UserID).WithField("sensors", req.SensorIDs).Info("grants added")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Revoke removes grants from a user.
func (h *AdminController) Revoke(c *gin.Context) {
	var req api_models.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "MalformedInput"})
		return
	}

	h.acl.Revoke(req.UserID, req.SensorIDs)
	h.log.WithField("user_id", req.UserID).WithField("sensors", req.SensorIDs).Info("grants revoked")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
