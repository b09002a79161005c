package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"research-assistant/internal/llm"
	"research-assistant/internal/logger"
	"research-assistant/internal/models"
)

// SummaryJobProcessor refreshes a conversation's title and summary from
// its message history. It runs in the worker, off the request path.
type SummaryJobProcessor struct {
	db       *gorm.DB
	provider llm.Provider
}

// NewSummaryJobProcessor creates a summary job processor
func NewSummaryJobProcessor(db *gorm.DB, provider llm.Provider) *SummaryJobProcessor {
	return &SummaryJobProcessor{
		db:       db,
		provider: provider,
	}
}

const titleSummaryPrompt = `Given the conversation below, produce a short title and a summary.

Respond with a JSON object:
{"title": "<at most 8 words>", "summary": "<2-3 sentences>"}`

// Process regenerates the title and summary for one conversation.
func (p *SummaryJobProcessor) Process(ctx context.Context, message SummaryJobMessage) error {
	conversationID, err := uuid.Parse(message.ConversationID)
	if err != nil {
		return fmt.Errorf("invalid conversation ID %q: %w", message.ConversationID, err)
	}

	var records []models.Message
	err = p.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Limit(20).
		Find(&records).Error
	if err != nil {
		return fmt.Errorf("failed to load messages for %s: %w", conversationID, err)
	}
	if len(records) == 0 {
		logger.Log.WithField("conversation_id", conversationID).Info("No messages to summarize, skipping")
		return nil
	}

	var transcript strings.Builder
	for _, m := range records {
		transcript.WriteString(m.Role)
		transcript.WriteString(": ")
		if len(m.Content) > 500 {
			transcript.WriteString(m.Content[:500])
		} else {
			transcript.WriteString(m.Content)
		}
		transcript.WriteString("\n")
	}

	raw, err := p.provider.Complete(ctx, []llm.Message{
		llm.SystemMessage(titleSummaryPrompt),
		llm.UserMessage(transcript.String()),
	}, llm.CompletionOptions{Temperature: 0.3, JSONOutput: true, MaxTokens: 300})
	if err != nil {
		return fmt.Errorf("summary generation failed for %s: %w", conversationID, err)
	}

	title, summary := parseTitleSummary(raw, records[0].Content)

	err = p.db.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"title":      title,
			"summary":    summary,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to save summary for %s: %w", conversationID, err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"conversation_id": conversationID,
		"title":           title,
	}).Info("Conversation summary updated")
	return nil
}

// parseTitleSummary falls back to a truncated first message when the
// model output is unusable.
func parseTitleSummary(raw, firstMessage string) (string, string) {
	var parsed struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := llm.DecodeJSONObject(raw, &parsed); err == nil && parsed.Title != "" {
		return parsed.Title, parsed.Summary
	}

	title := strings.TrimSpace(firstMessage)
	if len(title) > 60 {
		title = title[:60] + "..."
	}
	return title, ""
}
