package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityAgent_NameQuestion(t *testing.T) {
	agent := NewIdentityAgent("Aria")

	resp := agent.Handle(context.Background(), "what is your name?", IntentRecord{Handler: HandlerIdentity})

	assert.Contains(t, resp.Response, "Aria")
	assert.Equal(t, "name", resp.Metadata["question_type"])
}

func TestIdentityAgent_NatureQuestion(t *testing.T) {
	agent := NewIdentityAgent("Aria")

	resp := agent.Handle(context.Background(), "are you a robot?", IntentRecord{Handler: HandlerIdentity})

	assert.Contains(t, resp.Response, "AI research assistant")
	assert.Equal(t, "nature", resp.Metadata["question_type"])
}

func TestIdentityAgent_IntentQuestionTypeWins(t *testing.T) {
	agent := NewIdentityAgent("Aria")

	resp := agent.Handle(context.Background(), "whatever", IntentRecord{QuestionType: "name"})

	assert.Contains(t, resp.Response, "Aria")
}

func TestConversationAgent_Greeting(t *testing.T) {
	provider := &fakeProvider{responses: []string{"Hello! What would you like to research today?"}}
	recProvider := &fakeProvider{responses: []string{`[{"title": "Explore transformers", "relevance_score": 0.6}]`}}
	agent := NewConversationAgent(provider, NewRecommender(recProvider, 5), "Aria")

	resp := agent.Handle(context.Background(), "hi", IntentRecord{ConversationType: "greeting"}, nil)

	assert.Equal(t, "Hello! What would you like to research today?", resp.Response)
	// Every conversational turn gets recommendations, greetings included.
	assert.NotEmpty(t, resp.Recommendations)
	assert.Equal(t, 1, recProvider.callCount())
}

func TestConversationAgent_CapabilitiesGetsRecommendations(t *testing.T) {
	provider := &fakeProvider{responses: []string{"I can search papers and explain concepts."}}
	recProvider := &fakeProvider{responses: []string{`[{"title": "Try a paper search", "relevance_score": 0.5}]`}}
	agent := NewConversationAgent(provider, NewRecommender(recProvider, 5), "Aria")

	resp := agent.Handle(context.Background(), "what can you do for me", IntentRecord{ConversationType: "capabilities"}, nil)

	assert.NotEmpty(t, resp.Recommendations)
}
