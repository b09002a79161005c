package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	jsonFenceRe    = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	genericFenceRe = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

// StripCodeFences unwraps JSON that a model wrapped in markdown code
// fences. Returns the input unchanged when no fence is present.
func StripCodeFences(text string) string {
	if m := jsonFenceRe.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if strings.Contains(text, "```") {
		if m := genericFenceRe.FindStringSubmatch(text); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return text
}

// DecodeJSONObject strips code fences and unmarshals into v.
func DecodeJSONObject(text string, v interface{}) error {
	return json.Unmarshal([]byte(StripCodeFences(text)), v)
}
