package agents

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentError_WithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAgentError("academic_agent", "arXiv query failed", cause)

	assert.Contains(t, err.Error(), "academic_agent")
	assert.Contains(t, err.Error(), "arXiv query failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, errors.Is(err, cause))
}

func TestAgentError_WithoutCause(t *testing.T) {
	err := NewAgentError("synthesis_agent", "no material", nil)

	assert.Equal(t, "agent synthesis_agent: no material", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
