package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cloakedsheets/internal/conversation"
	"cloakedsheets/internal/domain"
)

// Handler exposes the conversation turn pipeline over HTTP.
type Handler struct {
	processor *conversation.Processor
	store     conversation.Persistence
	logger    *zap.Logger
}

// NewHandler creates a new chat handler. store may be nil.
func NewHandler(processor *conversation.Processor, store conversation.Persistence, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{processor: processor, store: store, logger: logger}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Post)
	r.GET("/messages", h.Messages)
	r.GET("/audit", h.Audit)
	r.POST("/messages/:id/pin", h.Pin)
}

type postRequest struct {
	Message string `json:"message"`
	Intent  string `json:"intent"`
	Value   string `json:"value"`
}

// Post submits a user message, or an intent/value pair answering a pending
// clarification, and runs the turn to completion.
func (h *Handler) Post(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	switch {
	case req.Intent != "":
		err = h.processor.Answer(c.Request.Context(), req.Intent, req.Value)
	case req.Message != "":
		err = h.processor.Send(c.Request.Context(), req.Message)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "message or intent is required"})
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTurnInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "a turn is already in flight"})
		case errors.Is(err, domain.ErrTurnCanceled):
			c.JSON(http.StatusConflict, gin.H{"error": "turn canceled by dataset switch"})
		default:
			// The processor already recorded an inline error message; the
			// updated log is returned alongside the error.
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    err.Error(),
				"messages": h.processor.Log().Messages(),
			})
		}
		return
	}

	summary, tables := h.processor.Summary()
	c.JSON(http.StatusOK, gin.H{
		"conversationId": h.processor.ConversationID(),
		"messages":       h.processor.Log().Messages(),
		"summary":        summary,
		"tables":         tables,
		"results":        h.processor.Results(),
	})
}

// Messages returns the conversation's message log.
func (h *Handler) Messages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"conversationId": h.processor.ConversationID(),
		"messages":       h.processor.Log().Messages(),
	})
}

// Audit returns the conversation's audit trail.
func (h *Handler) Audit(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"audit": h.processor.AuditLines()})
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

// Pin toggles the pinned flag of a message.
func (h *Handler) Pin(c *gin.Context) {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated := h.processor.Log().SetPinned(c.Param("id"), req.Pinned)
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if h.store != nil {
		if err := h.store.SaveMessage(h.processor.ConversationID(), *updated); err != nil {
			h.logger.Warn("failed to persist pin state",
				zap.String("message_id", updated.ID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, updated)
}
