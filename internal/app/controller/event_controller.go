package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/ikkim/inventory-backend/internal/middleware"
	ws "github.com/ikkim/inventory-backend/internal/websocket"
)

type EventController struct {
	hub      *ws.Hub
	upgrader gorillaws.Upgrader
}

// NewEventController streams hub events to browsers from allowedOrigins.
// "*" allows any origin; requests without an Origin header are accepted.
func NewEventController(hub *ws.Hub, allowedOrigins []string) *EventController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &EventController{
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Stream upgrades the request and sends inventory change events until the
// client disconnects
// GET /api/v1/events
func (ctrl *EventController) Stream(c *gin.Context) {
	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		middleware.GetLoggerFromContext(c).Warn("WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	ws.NewClient(ctrl.hub, conn).Serve()
}
