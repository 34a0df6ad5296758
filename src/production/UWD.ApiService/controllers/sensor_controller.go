package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	command "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Command"
	"gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.ApiService/middleware"
	access "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Access"
	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
	registry "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Registry"
)

// SensorController serves sensor listings, latest values and toggle
// commands.
type SensorController struct {
	registry *registry.Registry
	acl      *access.Store
	proc     *command.Processor
	log      *logger.Logger
}

// NewSensorController creates a new sensor controller
func NewSensorController(reg *registry.Registry, acl *access.Store, proc *command.Processor, log *logger.Logger) *SensorController {
	return &SensorController{
		registry: reg,
		acl:      acl,
		proc:     proc,
		log:      log.WithComponent("sensors"),
	}
}

// RegisterRoutes registers sensor routes
func (h *SensorController) RegisterRoutes(router *gin.Engine, auth *middleware.SessionMiddleware) {
	group := router.Group("/sensors", auth.Authenticate())
	group.GET("/authorized", h.ListAuthorized)
	group.GET("/data/:sensorId", h.LatestValue)
	group.POST("/toggle", h.Toggle)
}

// ListAuthorized returns the sensor IDs the caller may view. Admins see the
// whole fleet.
func (h *SensorController) ListAuthorized(c *gin.Context) {
	userID, err := middleware.UserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthenticated"})
		return
	}

	var sensors []string
	if h.acl.IsAdmin(userID) {
		for _, s := range h.registry.Snapshot() {
			sensors = append(sensors, s.SensorID)
		}
	} else {
		sensors = h.acl.ListGranted(userID)
	}
	if sensors == nil {
		sensors = []string{}
	}
	c.JSON(http.StatusOK, api_models.SensorListResponse{Sensors: sensors})
}

// LatestValue returns the registry's current record for one sensor.
func (h *SensorController) LatestValue(c *gin.Context) {
	userID, err := middleware.UserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthenticated"})
		return
	}
	sensorID := c.Param("sensorId")

	if !h.acl.IsAuthorized(userID, sensorID, access.View) {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "Forbidden"})
		return
	}

	sensor, err := h.registry.Get(sensorID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "NotFound"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sensorId":  sensor.SensorID,
		"kind":      sensor.Kind,
		"value":     sensor.Value,
		"timestamp": sensor.LastUpdated,
		"active":    sensor.Active,
	})
}

// Toggle applies an activate/deactivate command over REST.
func (h *SensorController) Toggle(c *gin.Context) {
	userID, err := middleware.UserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, api_models.CommandAck{OK: false, Error: "Unauthenticated"})
		return
	}

	var req api_models.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api_models.CommandAck{OK: false, Error: "MalformedInput"})
		return
	}

	sensor, err := h.proc.ApplyForUser(userID, req.SensorID, uwdmodels.Action(req.Action))
	if err != nil {
		c.JSON(statusForCommandError(err), api_models.CommandAck{OK: false, SensorID: req.SensorID, Error: err.Error()})
		return
	}

	h.log.WithField("user_id", userID).WithField("sensor_id", sensor.SensorID).Info("sensor toggled")
	c.JSON(http.StatusOK, api_models.CommandAck{OK: true, SensorID: sensor.SensorID})
}

// statusForCommandError maps domain errors to HTTP statuses.
func statusForCommandError(err error) int {
	switch {
	case errors.Is(err, uwdmodels.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, uwdmodels.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, uwdmodels.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, uwdmodels.ErrMalformedInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
