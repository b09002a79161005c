package agents

import (
	"encoding/json"
	"strings"

	"research-assistant/internal/llm"
)

// decodeJSON strips code fences and unmarshals into v.
func decodeJSON(text string, v interface{}) error {
	return llm.DecodeJSONObject(text, v)
}

// decodeJSONList handles the two shapes models return for list outputs:
// a bare JSON array, or an object wrapping the array under the given
// key (or any single array-valued key when the named one is absent).
func decodeJSONList(text string, key string, v interface{}) error {
	cleaned := llm.StripCodeFences(text)

	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &wrapper); err != nil {
		return err
	}
	if raw, ok := wrapper[key]; ok {
		return json.Unmarshal(raw, v)
	}
	for _, raw := range wrapper {
		trimmed := strings.TrimSpace(string(raw))
		if strings.HasPrefix(trimmed, "[") {
			return json.Unmarshal(raw, v)
		}
	}
	return json.Unmarshal([]byte(cleaned), v)
}
