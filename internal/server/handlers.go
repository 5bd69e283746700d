package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mindtek/leadchat/internal/chat"
	"github.com/mindtek/leadchat/internal/lead"
	"github.com/mindtek/leadchat/internal/llm"
	"github.com/mindtek/leadchat/internal/storage"
)

type Handler struct {
	chat     *chat.Service
	analyzer *lead.Analyzer
	logger   *zap.Logger
}

func NewHandler(chatService *chat.Service, analyzer *lead.Analyzer, logger *zap.Logger) *Handler {
	return &Handler{
		chat:     chatService,
		analyzer: analyzer,
		logger:   logger,
	}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Server is running"})
}

func (h *Handler) CreateSession(c *gin.Context) {
	sessionID, err := h.chat.CreateSession(c.Request.Context())
	if err != nil {
		h.respondError(c, "Create session", err, "Failed to create session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionID,
		"message":   "Session created successfully",
	})
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message and sessionId are required"})
		return
	}

	reply, err := h.chat.ProcessTurn(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		h.respondError(c, "Chat turn", err, "Failed to get response from AI. Please try again.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":  reply,
		"sessionId": req.SessionID,
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) GetConversation(c *gin.Context) {
	sessionID := c.Param("sessionId")

	conv, err := h.chat.GetConversation(c.Request.Context(), sessionID)
	if err != nil {
		h.respondError(c, "Get conversation", err, "Failed to retrieve conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId":    conv.SessionID,
		"messages":     conv.NonSystemMessages(),
		"createdAt":    conv.CreatedAt,
		"lastActivity": conv.CreatedAt,
	})
}

func (h *Handler) DeleteConversation(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if err := h.chat.DeleteConversation(c.Request.Context(), sessionID); err != nil {
		h.respondError(c, "Delete conversation", err, "Failed to clear conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation cleared successfully"})
}

func (h *Handler) DeleteAllConversations(c *gin.Context) {
	deleted, err := h.chat.DeleteAllConversations(c.Request.Context())
	if err != nil {
		h.respondError(c, "Delete all conversations", err, "Failed to clear conversations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "All conversations cleared successfully",
		"deleted": deleted,
	})
}

func (h *Handler) ListSessions(c *gin.Context) {
	summaries, err := h.chat.ListConversations(c.Request.Context())
	if err != nil {
		h.respondError(c, "List sessions", err, "Failed to retrieve sessions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

func (h *Handler) AnalyzeLead(c *gin.Context) {
	sessionID := c.Param("sessionId")

	analysis, analyzedAt, err := h.analyzer.Analyze(c.Request.Context(), sessionID)
	if err != nil {
		h.respondError(c, "Lead analysis", err, "Failed to analyze lead. Please try again.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"leadAnalysis": analysis,
		"analyzedAt":   analyzedAt,
	})
}

// respondError logs the full error server-side and maps it to the taxonomy
// status with a short, non-leaking message.
func (h *Handler) respondError(c *gin.Context, op string, err error, fallback string) {
	h.logger.Error(op+" failed",
		zap.Error(err),
		zap.String("path", c.FullPath()))

	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message and sessionId are required"})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
	case errors.Is(err, llm.ErrQuotaExceeded):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "API quota exceeded. Please check your OpenAI account."})
	case errors.Is(err, llm.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key. Please check your OpenAI API key."})
	case errors.Is(err, lead.ErrNoAnalysisJSON):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse lead analysis response"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
