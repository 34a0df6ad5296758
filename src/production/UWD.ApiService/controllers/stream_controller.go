package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.ApiService/middleware"
	command "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Command"
	hub "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Hub"
	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
	session "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamController serves the live telemetry WebSocket. Outbound frames are
// authorization-filtered snapshots and deltas from the hub; inbound frames
// are toggle commands answered with acks on the same connection.
type StreamController struct {
	hub      *hub.Hub
	sessions *session.Authenticator
	proc     *command.Processor
	log      *logger.Logger
	upgrader websocket.Upgrader
}

// NewStreamController creates a new stream controller
func NewStreamController(h *hub.Hub, sessions *session.Authenticator, proc *command.Processor, log *logger.Logger) *StreamController {
	return &StreamController{
		hub:      h,
		sessions: sessions,
		proc:     proc,
		log:      log.WithComponent("stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Cross-origin policy is enforced by the CORS layer on the
			// REST surface; the stream authenticates by session token.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the stream route
func (h *StreamController) RegisterRoutes(router *gin.Engine) {
	router.GET("/stream", h.Stream)
}

// Stream authenticates the connection, subscribes it to the hub and pumps
// frames until either side closes. The bound session dies with the
// connection.
func (h *StreamController) Stream(c *gin.Context) {
	tok := middleware.ExtractToken(c.Request)
	userID, err := h.sessions.Validate(tok)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthenticated"})
		return
	}

	sub, err := h.hub.Subscribe(userID, tok)
	if err != nil {
		if errors.Is(err, hub.ErrSubscriberLimit) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "subscriber limit reached"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "subscription failed"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.Unsubscribe(sub)
		h.log.WithField("user_id", userID).ErrorWithError(err, "websocket upgrade failed")
		return
	}

	log := h.log.WithField("user_id", userID)
	log.Info("stream connected")

	// Acks from the read loop are serialized onto the single writer
	// below; a websocket connection allows only one concurrent writer.
	acks := make(chan api_models.CommandAck, 16)
	go h.writeLoop(conn, sub, acks, log)
	h.readLoop(conn, sub, acks, log)

	h.hub.Unsubscribe(sub)
	h.sessions.Logout(sub.Token)
	conn.Close()
	log.Info("stream disconnected")
}

// readLoop consumes inbound toggle commands until the connection drops.
func (h *StreamController) readLoop(conn *websocket.Conn, sub *hub.Subscriber, acks chan<- api_models.CommandAck, log *logger.Logger) {
	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req api_models.ToggleRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		ack := api_models.CommandAck{OK: true, SensorID: req.SensorID}
		if _, err := h.proc.ApplyForUser(sub.UserID, req.SensorID, uwdmodels.Action(req.Action)); err != nil {
			ack = api_models.CommandAck{OK: false, SensorID: req.SensorID, Error: err.Error()}
		}

		// A rejected command is terminal for that command only; the
		// connection stays up. If the connection is already gone the
		// ack is discarded with it.
		select {
		case acks <- ack:
		default:
			log.Debug("ack queue full, dropping ack")
		}
	}
}

// writeLoop is the connection's only writer: telemetry frames, command acks
// and keepalive pings.
func (h *StreamController) writeLoop(conn *websocket.Conn, sub *hub.Subscriber, acks <-chan api_models.CommandAck, log *logger.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sub.Frames():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				conn.Close()
				return
			}
		case ack := <-acks:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ack); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
