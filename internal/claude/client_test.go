package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpilot/internal/analyze"
	"mailpilot/internal/mail"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-key", "claude-test", 0.3)
	client.apiURL = server.URL
	return client
}

func anthropicReply(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	resp := map[string]any{
		"id":   "msg_test",
		"type": "message",
		"role": "assistant",
		"content": []map[string]string{
			{"type": "text", "text": text},
		},
		"stop_reason": "end_turn",
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestAnalyzeEmail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Contains(t, req.Messages[0].Content, "Can we schedule")

		anthropicReply(t, w, `{"intent":"scheduling","priority":"normal","required_actions":["schedule_meeting","send_email"],"needs_external_info":false,"suggested_tone":"professional","confidence":0.9,"reasoning":"asks for a meeting"}`)
	})

	analysis, err := client.AnalyzeEmail(context.Background(), mail.Email{
		From:    "alice@example.com",
		Subject: "Catch up",
		Body:    "Can we schedule a call next week?",
	})
	require.NoError(t, err)
	assert.Equal(t, analyze.IntentScheduling, analysis.Intent)
	assert.Equal(t, []string{"schedule_meeting", "send_email"}, analysis.RequiredActions)
	assert.InDelta(t, 0.9, analysis.Confidence, 0.001)
}

func TestAnalyzeEmailMarkdownWrapped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		anthropicReply(t, w, "Here is my analysis:\n```json\n{\"intent\":\"question\",\"priority\":\"low\",\"confidence\":0.7}\n```")
	})

	analysis, err := client.AnalyzeEmail(context.Background(), mail.Email{
		Subject: "Pricing",
		Body:    "What does it cost?",
	})
	require.NoError(t, err)
	assert.Equal(t, analyze.IntentQuestion, analysis.Intent)
	assert.Equal(t, analyze.PriorityLow, analysis.Priority)
}

func TestDraftReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DraftSystemPrompt, req.System)
		assert.Contains(t, req.Messages[0].Content, "Gathered Context")
		assert.Contains(t, req.Messages[0].Content, "empathetic")

		anthropicReply(t, w, "Hi Bob,\n\nSorry about that.\n\nBest regards,")
	})

	body, err := client.DraftReply(context.Background(), mail.Email{
		From:     "bob@example.com",
		FromName: "Bob",
		Subject:  "Broken export",
		Body:     "The export is broken.",
	}, "Known issue, fix shipping tomorrow.", "empathetic")
	require.NoError(t, err)
	assert.Contains(t, body, "Sorry about that")
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	})

	_, err := client.AnalyzeEmail(context.Background(), mail.Email{Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare json",
			input:    `{"a":1}`,
			expected: `{"a":1}`,
		},
		{
			name:     "markdown fenced",
			input:    "```json\n{\"a\":1}\n```",
			expected: `{"a":1}`,
		},
		{
			name:     "nested braces",
			input:    `prefix {"a":{"b":2}} suffix`,
			expected: `{"a":{"b":2}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.input))
		})
	}
}

func TestIsConfigured(t *testing.T) {
	assert.True(t, NewClient("key", "", 0).IsConfigured())
	assert.False(t, NewClient("", "", 0).IsConfigured())
}

func TestTemplateDrafter(t *testing.T) {
	drafter := NewTemplateDrafter()

	body, err := drafter.DraftFor(context.Background(), mail.Email{
		From:     "carol@example.com",
		FromName: "Carol Jones",
	}, &analyze.Analysis{Intent: analyze.IntentComplaint})
	require.NoError(t, err)
	assert.Contains(t, body, "Hi Carol,")
	assert.Contains(t, body, "sorry to hear")
	assert.Contains(t, body, "Best regards,")
}
