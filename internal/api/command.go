package api

import (
	"context"
	_ "embed"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/themobileprof/commandbot/internal/logging"
	"github.com/themobileprof/commandbot/internal/router"
	"github.com/themobileprof/commandbot/internal/store"
)

//go:embed web/index.html
var indexHTML []byte

// Processor turns an utterance into a reply.
type Processor interface {
	Process(ctx context.Context, utterance string) router.Reply
}

// CommandHandler serves the text command endpoint and the bundled page.
type CommandHandler struct {
	processor Processor
	logger    *zap.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(p Processor, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{processor: p, logger: logging.OrNop(logger).Named("api")}
}

// CommandRequest is the body of POST /command. Command is a pointer so a
// missing field can be told apart from an empty utterance.
type CommandRequest struct {
	Command *string `json:"command"`
}

// CommandResponse is the body returned by POST /command.
type CommandResponse struct {
	Response string `json:"response"`
}

// HandleCommand answers one utterance. Only a malformed request is an
// error; every domain failure is a 200 with an apology in the text.
func (h *CommandHandler) HandleCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("invalid command body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Command == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command field is required"})
		return
	}

	reply := h.processor.Process(c.Request.Context(), *req.Command)
	c.JSON(http.StatusOK, CommandResponse{Response: reply.Text})
}

// Index serves the chat page.
func (h *CommandHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// InteractionLister reads back the interaction log.
type InteractionLister interface {
	RecentInteractions(ctx context.Context, limit int) ([]store.Interaction, error)
}

// InteractionHandler exposes the interaction log for inspection.
type InteractionHandler struct {
	store  InteractionLister
	logger *zap.Logger
}

func NewInteractionHandler(s InteractionLister, logger *zap.Logger) *InteractionHandler {
	return &InteractionHandler{store: s, logger: logging.OrNop(logger).Named("api")}
}

// ListInteractions returns the newest interactions, ?limit=N (default 20).
func (h *InteractionHandler) ListInteractions(c *gin.Context) {
	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	interactions, err := h.store.RecentInteractions(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list interactions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve interactions"})
		return
	}
	if interactions == nil {
		interactions = []store.Interaction{}
	}

	c.JSON(http.StatusOK, gin.H{"interactions": interactions})
}
