package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/themobileprof/commandbot/internal/api/middleware"
	"github.com/themobileprof/commandbot/internal/router"
)

const (
	maxMessageSize    = 4096
	writeWait         = 10 * time.Second
	messagesPerMinute = 60
)

// Processor turns an utterance into a reply.
type Processor interface {
	Process(ctx context.Context, utterance string) router.Reply
}

// CommandHandler serves utterances over a websocket, one reply per message.
type CommandHandler struct {
	processor Processor
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewCommandHandler creates a new websocket command handler. Browser
// handshakes must come from one of allowedOrigins; none listed allows any
// origin, matching the CORS middleware.
func NewCommandHandler(p Processor, logger *zap.Logger, allowedOrigins ...string) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &CommandHandler{processor: p, logger: logger.Named("ws")}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// non-browser clients send no Origin
			if origin == "" || middleware.OriginAllowed(allowedOrigins, origin) {
				return true
			}
			h.logger.Warn("rejected websocket origin", zap.String("origin", origin))
			return false
		},
	}
	return h
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Command *string `json:"command"`
}

// OutgoingMessage represents a message to the client
type OutgoingMessage struct {
	Type    string   `json:"type"` // "response" or "error"
	Content string   `json:"content"`
	Intents []string `json:"intents,omitempty"`
}

// HandleCommand upgrades the connection and answers until the client leaves.
func (h *CommandHandler) HandleCommand(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	connID := uuid.New().String()
	logger := h.logger.With(zap.String("conn_id", connID))
	logger.Info("websocket connected", zap.String("client_ip", c.ClientIP()))

	limiter := middleware.NewWebSocketLimiter(messagesPerMinute)
	ctx := c.Request.Context()

	for {
		var msg IncomingMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", zap.Error(err))
			}
			break
		}

		if !limiter.Allow() {
			if err := h.send(conn, OutgoingMessage{Type: "error", Content: "Rate limit exceeded. Please slow down."}); err != nil {
				break
			}
			continue
		}
		if msg.Command == nil {
			if err := h.send(conn, OutgoingMessage{Type: "error", Content: "command field is required"}); err != nil {
				break
			}
			continue
		}

		reply := h.processor.Process(router.WithRequestID(ctx, uuid.New().String()), *msg.Command)

		intents := make([]string, len(reply.Intents))
		for i, in := range reply.Intents {
			intents[i] = string(in)
		}
		if err := h.send(conn, OutgoingMessage{Type: "response", Content: reply.Text, Intents: intents}); err != nil {
			logger.Warn("websocket write failed", zap.Error(err))
			break
		}
	}

	logger.Info("websocket disconnected")
}

func (h *CommandHandler) send(conn *websocket.Conn, msg OutgoingMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
