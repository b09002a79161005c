package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Conversation represents one chat session with the assistant
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title     *string   `gorm:"size:255" json:"title,omitempty"`
	Summary   *string   `gorm:"type:text" json:"summary,omitempty"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"updated_at"`

	// Relationships
	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// Message represents a single turn in a conversation
type Message struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ConversationID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Role            string         `gorm:"size:20;not null" json:"role"` // user, assistant
	Content         string         `gorm:"type:text;not null" json:"content"`
	MessageMetadata datatypes.JSON `gorm:"type:jsonb" json:"message_metadata,omitempty"` // intent, tasks, sources, recommendations
	CreatedAt       time.Time      `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`

	// Relationships
	Conversation Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Conversation{}, &Message{})
}
