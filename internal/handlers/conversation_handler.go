package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"research-assistant/internal/logger"
)

type ConversationHandler struct {
	chatService ChatServiceInterface
}

func NewConversationHandler(chatService ChatServiceInterface) *ConversationHandler {
	return &ConversationHandler{chatService: chatService}
}

// ListConversations returns conversations ordered by recent activity
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	correlationID := getCorrelationID(c)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	conversations, err := h.chatService.ListConversations(limit, offset)
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"operation": "list_conversations",
		})
		c.JSON(http.StatusInternalServerError, errorBody("LIST_ERROR", "Failed to list conversations", correlationID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// GetMessages returns the full message history of a conversation
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	correlationID := getCorrelationID(c)

	conversationID, err := uuid.Parse(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_UUID", "Invalid conversation ID format", correlationID))
		return
	}

	messages, err := h.chatService.GetMessages(conversationID)
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"conversation_id": conversationID,
			"operation":       "get_messages",
		})
		c.JSON(http.StatusInternalServerError, errorBody("MESSAGES_ERROR", "Failed to load messages", correlationID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conversationID,
		"messages":        messages,
		"count":           len(messages),
	})
}

// GetRecommendations returns the follow-up suggestions stored with the
// latest assistant reply of a conversation
func (h *ConversationHandler) GetRecommendations(c *gin.Context) {
	correlationID := getCorrelationID(c)

	conversationID, err := uuid.Parse(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_UUID", "Invalid conversation ID format", correlationID))
		return
	}

	recommendations, err := h.chatService.LatestRecommendations(conversationID)
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"conversation_id": conversationID,
			"operation":       "get_recommendations",
		})
		c.JSON(http.StatusInternalServerError, errorBody("RECOMMENDATIONS_ERROR", "Failed to load recommendations", correlationID))
		return
	}
	if recommendations == nil {
		recommendations = []map[string]interface{}{}
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conversationID,
		"recommendations": recommendations,
	})
}
