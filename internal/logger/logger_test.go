package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	originalLevel := Log.Level
	defer Log.SetLevel(originalLevel)

	cases := []struct {
		input    string
		expected logrus.Level
	}{
		{"DEBUG", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"WARN", logrus.WarnLevel},
		{"ERROR", logrus.ErrorLevel},
		{"INVALID", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tc := range cases {
		SetLevel(tc.input)
		assert.Equal(t, tc.expected, Log.Level, "level %q", tc.input)
	}
}

func TestWithCorrelationID(t *testing.T) {
	entry := WithCorrelationID("test-correlation-123")

	assert.Equal(t, "test-correlation-123", entry.Data["correlation_id"])
}

func TestGetStackTrace(t *testing.T) {
	trace := GetStackTrace(0)

	assert.NotEmpty(t, trace)
	assert.Contains(t, trace, "goroutine")
}

func TestLogErrorWithStack_IncludesStackTrace(t *testing.T) {
	var buf bytes.Buffer
	originalOutput := Log.Out
	defer Log.SetOutput(originalOutput)
	Log.SetOutput(&buf)

	LogErrorWithStack(errors.New("something broke"), map[string]interface{}{
		"component": "test",
	})

	var logged map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logged))
	assert.Equal(t, "something broke", logged["error"])
	assert.Equal(t, "test", logged["component"])
	assert.Contains(t, logged["stack_trace"], "goroutine")
}

func TestLogErrorWithStack_NilFields(t *testing.T) {
	var buf bytes.Buffer
	originalOutput := Log.Out
	defer Log.SetOutput(originalOutput)
	Log.SetOutput(&buf)

	LogErrorWithStack(errors.New("boom"), nil)

	var logged map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logged))
	assert.Equal(t, "boom", logged["error"])
}

func TestLogErrorWithStackAndCorrelation(t *testing.T) {
	var buf bytes.Buffer
	originalOutput := Log.Out
	defer Log.SetOutput(originalOutput)
	Log.SetOutput(&buf)

	LogErrorWithStackAndCorrelation(errors.New("request failed"), "corr-42", map[string]interface{}{
		"agent": "academic",
	})

	var logged map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logged))
	assert.Equal(t, "corr-42", logged["correlation_id"])
	assert.Equal(t, "academic", logged["agent"])
	assert.Contains(t, logged["stack_trace"], "goroutine")
}
