package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"research-assistant/internal/agents"
	"research-assistant/internal/llm"
	"research-assistant/internal/logger"
	"research-assistant/internal/models"
)

// ChatServiceInterface defines the persistence operations the chat
// endpoints need.
type ChatServiceInterface interface {
	GetOrCreateConversation(id *uuid.UUID) (*models.Conversation, error)
	LoadHistory(conversationID uuid.UUID) ([]llm.Message, error)
	SaveExchange(conversationID uuid.UUID, userMessage, assistantMessage string, metadata map[string]interface{}) error
	ListConversations(limit, offset int) ([]models.Conversation, error)
	GetMessages(conversationID uuid.UUID) ([]models.Message, error)
	LatestRecommendations(conversationID uuid.UUID) ([]map[string]interface{}, error)
}

// OrchestratorInterface defines the message processing pipeline.
type OrchestratorInterface interface {
	Process(ctx context.Context, message string, history []llm.Message) (string, map[string]interface{})
}

type ChatHandler struct {
	chatService  ChatServiceInterface
	orchestrator OrchestratorInterface
}

func NewChatHandler(chatService ChatServiceInterface, orchestrator OrchestratorInterface) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		orchestrator: orchestrator,
	}
}

// ChatRequest is the inbound chat message payload
type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Chat processes a user message through the assistant pipeline
func (h *ChatHandler) Chat(c *gin.Context) {
	correlationID := getCorrelationID(c)

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "message field is required", correlationID))
		return
	}

	var conversationID *uuid.UUID
	if req.ConversationID != "" {
		parsed, err := uuid.Parse(req.ConversationID)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody("INVALID_UUID", "Invalid conversation ID format", correlationID))
			return
		}
		conversationID = &parsed
	}

	conversation, err := h.chatService.GetOrCreateConversation(conversationID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorCode := "CONVERSATION_ERROR"
		if contains(err.Error(), "not found") {
			statusCode = http.StatusNotFound
			errorCode = "CONVERSATION_NOT_FOUND"
		}
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"operation": "get_or_create_conversation",
		})
		c.JSON(statusCode, errorBody(errorCode, err.Error(), correlationID))
		return
	}

	history, err := h.chatService.LoadHistory(conversation.ID)
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"conversation_id": conversation.ID,
			"operation":       "load_history",
		})
		c.JSON(http.StatusInternalServerError, errorBody("HISTORY_ERROR", "Failed to load conversation history", correlationID))
		return
	}

	logger.Log.WithFields(map[string]interface{}{
		"correlation_id":  correlationID,
		"conversation_id": conversation.ID,
		"message_length":  len(req.Message),
	}).Info("Chat message received")

	ctx := agents.WithCorrelationID(c.Request.Context(), correlationID)
	response, metadata := h.orchestrator.Process(ctx, req.Message, history)

	if err := h.chatService.SaveExchange(conversation.ID, req.Message, response, metadata); err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"conversation_id": conversation.ID,
			"operation":       "save_exchange",
		})
		// Persistence failure does not fail the response.
	}

	c.JSON(http.StatusOK, gin.H{
		"response":        response,
		"conversation_id": conversation.ID,
		"metadata":        metadata,
	})
}
