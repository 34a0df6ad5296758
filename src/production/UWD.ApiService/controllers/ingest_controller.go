package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.ApiService/middleware"
	ingest "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Ingest"
	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
)

// IngestController receives raw sensor update batches from trusted sources:
// the MQTT ingestor and any bridge holding the internal secret.
type IngestController struct {
	gateway *ingest.Gateway
	log     *logger.Logger
}

// NewIngestController creates a new ingest controller
func NewIngestController(gateway *ingest.Gateway, log *logger.Logger) *IngestController {
	return &IngestController{
		gateway: gateway,
		log:     log.WithComponent("ingest-api"),
	}
}

// RegisterRoutes registers ingest routes. /receive_data is the path the
// original device firmware posts to; /internal/readings is the same handler
// for the ingestor service.
func (h *IngestController) RegisterRoutes(router *gin.Engine, auth *middleware.SessionMiddleware) {
	router.POST("/receive_data", auth.RequireInternalToken(), h.Receive)
	router.POST("/internal/readings", auth.RequireInternalToken(), h.Receive)
}

// Receive applies a batch of readings keyed by sensor kind. Malformed
// entries are rejected individually with a reason; valid ones still apply.
func (h *IngestController) Receive(c *gin.Context) {
	var batch map[string]api_models.RawReading
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "MalformedInput"})
		return
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "MalformedInput"})
		return
	}

	result := h.gateway.ApplyBatch(batch)
	c.JSON(http.StatusOK, result)
}
