package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Subscriber opens a pub/sub subscription for one game's events.
type Subscriber interface {
	Subscribe(ctx context.Context, gameID string) *redis.PubSub
}

// EventsHandler streams a game's events over a websocket.
// Routes:
// GET /api/events/{gameId}
type EventsHandler struct {
	subscriber Subscriber
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewEventsHandler accepts connections from allowedOrigins. A "*" entry
// allows any origin.
func NewEventsHandler(subscriber Subscriber, allowedOrigins []string, logger *slog.Logger) *EventsHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &EventsHandler{
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		logger: logger,
	}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gameID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/events"), "/")
	if gameID == "" || strings.Contains(gameID, "/") || len(gameID) > maxGameIDLen {
		writeError(w, h.logger, http.StatusBadRequest, "gameId is required")
		return
	}
	log := h.logger.With("game_id", gameID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before the handshake so nothing published after the client
	// connects is missed.
	pubsub := h.subscriber.Subscribe(ctx, gameID)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Error("Failed to subscribe to game events", "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	log.Info("Event stream opened")

	go h.readPump(conn, cancel, log)
	h.writePump(ctx, conn, pubsub.Channel(), log)
	log.Info("Event stream closed")
}

// readPump discards client messages and cancels the stream when the
// connection goes away.
func (h *EventsHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc, log *slog.Logger) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("Websocket read error", "error", err)
			}
			return
		}
	}
}

func (h *EventsHandler) writePump(ctx context.Context, conn *websocket.Conn, messages <-chan *redis.Message, log *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Warn("Websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
