package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/tokyorisk/internal/events"
)

// alertWriteTimeout bounds one websocket write
const alertWriteTimeout = 5 * time.Second

// AlertMessage is one alert pushed to websocket clients
type AlertMessage struct {
	Type      events.EventType `json:"type"`
	Timestamp string           `json:"timestamp"`
	Data      events.EventData `json:"data"`
}

// AlertStreamHandler pushes raised alerts to websocket clients
type AlertStreamHandler struct {
	eventBus *events.Bus
	origins  []string
	log      zerolog.Logger
}

// NewAlertStreamHandler creates a new alert stream handler. origins lists
// extra allowed Origin host patterns; "*" accepts any origin.
func NewAlertStreamHandler(eventBus *events.Bus, origins []string, log zerolog.Logger) *AlertStreamHandler {
	return &AlertStreamHandler{
		eventBus: eventBus,
		origins:  origins,
		log:      log.With().Str("component", "alerts_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/alerts/stream
func (h *AlertStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		// Accept has already written the HTTP error
		h.log.Warn().Err(err).Msg("Websocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	alerts, unsubscribe := h.eventBus.Subscribe(events.AlertRaised)
	defer unsubscribe()

	// Clients only listen; CloseRead handles control frames and ends ctx on close
	ctx := conn.CloseRead(r.Context())

	h.log.Info().Str("remote", r.RemoteAddr).Msg("Alert stream client connected")

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Alert stream client disconnected")
			return

		case event, ok := <-alerts:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "event bus closed")
				return
			}
			if err := h.write(ctx, conn, event); err != nil {
				if websocket.CloseStatus(err) == -1 {
					h.log.Warn().Err(err).Msg("Failed to push alert")
				}
				return
			}
		}
	}
}

func (h *AlertStreamHandler) write(ctx context.Context, conn *websocket.Conn, event *events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, alertWriteTimeout)
	defer cancel()

	return wsjson.Write(ctx, conn, AlertMessage{
		Type:      event.Type,
		Timestamp: event.Timestamp.Format(time.RFC3339),
		Data:      event.Data,
	})
}
