package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mailpilot/internal/analyze"
	"mailpilot/internal/mail"
)

const (
	defaultAPIURL    = "https://api.anthropic.com/v1/messages"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 1024
	anthropicVersion = "2023-06-01"
)

// Client is a Claude API client for email analysis and reply drafting.
type Client struct {
	apiKey      string
	model       string
	apiURL      string
	httpClient  *http.Client
	temperature float64
}

// NewClient creates a new Claude API client
func NewClient(apiKey, model string, temperature float64) *Client {
	if model == "" {
		model = defaultModel
	}
	if temperature <= 0 {
		temperature = 0.3
	}

	return &Client{
		apiKey:      apiKey,
		model:       model,
		apiURL:      defaultAPIURL,
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// anthropicRequest represents the API request structure
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse represents the API response structure
type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// AnalyzeEmail asks Claude to classify an incoming email.
func (c *Client) AnalyzeEmail(ctx context.Context, email mail.Email) (*analyze.Analysis, error) {
	responseText, err := c.complete(ctx, AnalysisSystemPrompt, buildAnalysisPrompt(email))
	if err != nil {
		return nil, err
	}

	var analysis analyze.Analysis
	jsonStr := extractJSON(responseText)
	if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w (response: %s)", err, responseText)
	}

	return &analysis, nil
}

// DraftReply asks Claude to write a reply to the email using the gathered
// context. Returns the reply body as plain text.
func (c *Client) DraftReply(ctx context.Context, email mail.Email, gathered string, tone string) (string, error) {
	responseText, err := c.complete(ctx, DraftSystemPrompt, buildDraftPrompt(email, gathered, tone))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(responseText), nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) complete(ctx context.Context, system, userPrompt string) (string, error) {
	req := anthropicRequest{
		Model:       c.model,
		MaxTokens:   defaultMaxTokens,
		Temperature: c.temperature,
		System:      system,
		Messages: []anthropicMessage{
			{Role: "user", Content: userPrompt},
		},
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response from API")
	}

	return apiResp.Content[0].Text, nil
}

// buildAnalysisPrompt constructs the classification prompt for one email.
func buildAnalysisPrompt(email mail.Email) string {
	var prompt bytes.Buffer

	prompt.WriteString("## Email to Analyze\n\n")
	prompt.WriteString(fmt.Sprintf("From: %s", email.From))
	if email.FromName != "" {
		prompt.WriteString(fmt.Sprintf(" (%s)", email.FromName))
	}
	prompt.WriteString("\n")
	prompt.WriteString(fmt.Sprintf("Subject: %s\n", email.Subject))
	if !email.Date.IsZero() {
		prompt.WriteString(fmt.Sprintf("Received: %s\n", email.Date.Format("2006-01-02 15:04")))
	}
	prompt.WriteString("\n")
	prompt.WriteString(email.Body)
	prompt.WriteString("\n")

	if len(email.Attachments) > 0 {
		prompt.WriteString("\n## Attachments\n\n")
		for _, att := range email.Attachments {
			prompt.WriteString(fmt.Sprintf("- %s (%s)\n", att.Filename, att.MIMEType))
		}
	}

	prompt.WriteString("\n## Current Date/Time Reference\n\n")
	prompt.WriteString(fmt.Sprintf("Current time: %s\n", time.Now().Format("2006-01-02 15:04 (Monday)")))

	prompt.WriteString("\nAnalyze this email and respond with your JSON analysis.")

	return prompt.String()
}

// buildDraftPrompt constructs the reply-drafting prompt.
func buildDraftPrompt(email mail.Email, gathered string, tone string) string {
	var prompt bytes.Buffer

	prompt.WriteString("## Original Email\n\n")
	prompt.WriteString(fmt.Sprintf("From: %s", email.From))
	if email.FromName != "" {
		prompt.WriteString(fmt.Sprintf(" (%s)", email.FromName))
	}
	prompt.WriteString("\n")
	prompt.WriteString(fmt.Sprintf("Subject: %s\n\n", email.Subject))
	prompt.WriteString(email.Body)
	prompt.WriteString("\n")

	if gathered != "" {
		prompt.WriteString("\n## Gathered Context\n\n")
		prompt.WriteString(gathered)
		prompt.WriteString("\n")
	}

	if tone == "" {
		tone = "professional"
	}
	prompt.WriteString(fmt.Sprintf("\n## Requested Tone\n\n%s\n", tone))
	prompt.WriteString("\nWrite the reply body now. Output only the reply text.")

	return prompt.String()
}

// extractJSON attempts to extract JSON from a response that might be wrapped in markdown
func extractJSON(text string) string {
	start := 0
	if idx := findJSONStart(text); idx >= 0 {
		start = idx
	}

	end := len(text)
	if idx := findJSONEnd(text, start); idx >= 0 {
		end = idx + 1
	}

	return text[start:end]
}

func findJSONStart(text string) int {
	// Look for opening brace, possibly after ```json
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			return i
		}
	}
	return -1
}

func findJSONEnd(text string, start int) int {
	// Find matching closing brace
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// IsConfigured returns true if the client has an API key
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}
