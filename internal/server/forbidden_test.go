package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestContainsForbiddenFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"clean request", `{"model":"gpt-4","operation":"completion","metadata":{"region":"eu"}}`, false},
		{"top-level prompt", `{"model":"gpt-4","prompt":"hi"}`, true},
		{"nested content", `{"metadata":{"extra":{"content":"secret"}}}`, true},
		{"inside array", `{"items":[{"messages":[]}]}`, true},
		{"uppercase key", `{"PROMPT":"hi"}`, true},
		{"mixed case key", `{"Messages":[]}`, true},
		{"forbidden word as value", `{"note":"prompt"}`, false},
		{"forbidden substring in key", `{"prompted_by":"ui"}`, false},
		{"empty object", `{}`, false},
		{"scalar body", `42`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsForbiddenFields(decode(t, tt.body)))
		})
	}
}
