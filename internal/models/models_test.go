package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestConversation_BeforeCreateSetsUUID(t *testing.T) {
	conversation := &Conversation{}

	require.NoError(t, conversation.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, conversation.ID)

	// An existing ID is preserved.
	fixed := uuid.New()
	existing := &Conversation{ID: fixed}
	require.NoError(t, existing.BeforeCreate(nil))
	assert.Equal(t, fixed, existing.ID)
}

func TestMessage_BeforeCreateSetsUUID(t *testing.T) {
	message := &Message{}

	require.NoError(t, message.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, message.ID)
}

func TestMessage_MetadataRoundTrip(t *testing.T) {
	metadata := map[string]interface{}{
		"handler": "research",
		"sources": []map[string]interface{}{
			{"title": "Paper", "url": "https://arxiv.org/abs/1", "type": "academic"},
		},
	}
	raw, err := json.Marshal(metadata)
	require.NoError(t, err)

	message := Message{
		ConversationID:  uuid.New(),
		Role:            "assistant",
		Content:         "answer",
		MessageMetadata: datatypes.JSON(raw),
	}

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(message.MessageMetadata, &decoded))
	assert.Equal(t, "research", decoded["handler"])
}
