package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"research-assistant/internal/config"
	"research-assistant/internal/llm"
	"research-assistant/internal/logger"
	"research-assistant/internal/models"
)

// KafkaServiceInterface defines the interface for queue operations
type KafkaServiceInterface interface {
	PublishSummaryJob(message interface{}) error
}

// SummaryJobMessage is the queue payload asking the worker to refresh a
// conversation's title and summary.
type SummaryJobMessage struct {
	ConversationID string `json:"conversation_id"`
}

// ChatService persists conversations and messages and enqueues summary
// jobs after each exchange.
type ChatService struct {
	db           *gorm.DB
	cfg          *config.Config
	kafkaService KafkaServiceInterface
}

// NewChatService creates a new chat service
func NewChatService(db *gorm.DB, cfg *config.Config, kafkaService KafkaServiceInterface) *ChatService {
	return &ChatService{
		db:           db,
		cfg:          cfg,
		kafkaService: kafkaService,
	}
}

// GetOrCreateConversation loads a conversation by ID, creating a fresh
// one when the ID is nil.
func (s *ChatService) GetOrCreateConversation(id *uuid.UUID) (*models.Conversation, error) {
	if id == nil {
		conversation := &models.Conversation{}
		if err := s.db.Create(conversation).Error; err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		return conversation, nil
	}

	var conversation models.Conversation
	if err := s.db.First(&conversation, "id = ?", *id).Error; err != nil {
		return nil, fmt.Errorf("conversation %s not found: %w", id, err)
	}
	return &conversation, nil
}

// LoadHistory returns the most recent messages of a conversation in
// chronological order, shaped for prompt context.
func (s *ChatService) LoadHistory(conversationID uuid.UUID) ([]llm.Message, error) {
	var records []models.Message
	err := s.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(s.cfg.ContextMessageLimit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	history := make([]llm.Message, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		history = append(history, llm.Message{Role: records[i].Role, Content: records[i].Content})
	}
	return history, nil
}

// SaveExchange stores a user turn and the assistant's reply, bumps the
// conversation timestamp, and enqueues a title/summary refresh. Queue
// failures are logged but never fail the exchange.
func (s *ChatService) SaveExchange(conversationID uuid.UUID, userMessage, assistantMessage string, metadata map[string]interface{}) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to serialize message metadata: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Message{
			ConversationID: conversationID,
			Role:           "user",
			Content:        userMessage,
		}).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.Message{
			ConversationID:  conversationID,
			Role:            "assistant",
			Content:         assistantMessage,
			MessageMetadata: metadataJSON,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}

	if err := s.kafkaService.PublishSummaryJob(SummaryJobMessage{ConversationID: conversationID.String()}); err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"conversation_id": conversationID,
			"operation":       "publish_summary_job",
		})
	}

	return nil
}

// ListConversations returns conversations most recently active first.
func (s *ChatService) ListConversations(limit, offset int) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := s.db.
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// GetMessages returns a conversation's full message history.
func (s *ChatService) GetMessages(conversationID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}

// LatestRecommendations pulls the recommendations stored with the most
// recent assistant message of a conversation.
func (s *ChatService) LatestRecommendations(conversationID uuid.UUID) ([]map[string]interface{}, error) {
	var record models.Message
	err := s.db.
		Where("conversation_id = ? AND role = ?", conversationID, "assistant").
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest assistant message: %w", err)
	}

	if len(record.MessageMetadata) == 0 {
		return nil, nil
	}

	var metadata struct {
		Recommendations []map[string]interface{} `json:"recommendations"`
	}
	if err := json.Unmarshal(record.MessageMetadata, &metadata); err != nil {
		return nil, nil
	}
	return metadata.Recommendations, nil
}
