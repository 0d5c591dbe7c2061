package analyze

import (
	"context"
	"strings"

	"mailpilot/internal/mail"
)

// KeywordAnalyzer is a lightweight deterministic classifier. It is the
// fallback when no model is configured and the first pass for trivial mail.
type KeywordAnalyzer struct{}

func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

func (a *KeywordAnalyzer) IsConfigured() bool {
	return true
}

func (a *KeywordAnalyzer) AnalyzeEmail(_ context.Context, email mail.Email) (*Analysis, error) {
	text := strings.ToLower(strings.TrimSpace(email.Subject + "\n" + email.Body))
	if text == "" {
		return &Analysis{
			Intent:        IntentUnknown,
			Priority:      PriorityNormal,
			SuggestedTone: "professional",
			Confidence:    1,
			Reasoning:     "empty email",
		}, nil
	}

	intent, intentConfidence := classifyIntent(text)
	priority := classifyPriority(text)

	analysis := &Analysis{
		Intent:          intent,
		Priority:        priority,
		RequiredActions: requiredActions(intent, text),
		NeedsExternal:   containsAny(text, externalInfoHints),
		SuggestedTone:   suggestedTone(intent, priority),
		Confidence:      intentConfidence,
		Reasoning:       "keyword classification",
	}
	return analysis, nil
}

var (
	schedulingHints = []string{
		"schedule", "meeting", "appointment", "calendar", "availability",
		"available", "reschedule", "call", "book a",
	}
	complaintHints = []string{
		"complaint", "issue", "problem", "broken", "unhappy",
		"disappointed", "refund", "not working", "frustrated",
	}
	requestHints = []string{
		"please", "could you", "can you", "would you", "need you to",
		"request",
	}
	questionHints = []string{
		"?", "how ", "what ", "when ", "where ", "why ", "who ",
		"wondering",
	}
	informationHints = []string{
		"fyi", "for your information", "update:", "heads up", "announcement",
	}

	urgentHints = []string{
		"urgent", "asap", "immediately", "critical", "emergency", "right away",
	}
	highHints = []string{
		"important", "priority", "by end of day", "eod", "soon as possible",
	}
	lowHints = []string{
		"no rush", "whenever", "no hurry", "low priority", "fyi",
	}

	externalInfoHints = []string{
		"latest", "current", "news", "market", "price", "recent",
		"what's new", "industry",
	}
)

func classifyIntent(text string) (string, float64) {
	switch {
	case containsAny(text, schedulingHints):
		return IntentScheduling, 0.8
	case containsAny(text, complaintHints):
		return IntentComplaint, 0.75
	case containsAny(text, requestHints):
		return IntentRequest, 0.7
	case containsAny(text, questionHints):
		return IntentQuestion, 0.7
	case containsAny(text, informationHints):
		return IntentInformation, 0.7
	default:
		return IntentUnknown, 0.5
	}
}

func classifyPriority(text string) string {
	switch {
	case containsAny(text, urgentHints):
		return PriorityUrgent
	case containsAny(text, highHints):
		return PriorityHigh
	case containsAny(text, lowHints):
		return PriorityLow
	default:
		return PriorityNormal
	}
}

func requiredActions(intent, text string) []string {
	var actions []string

	switch intent {
	case IntentScheduling:
		actions = append(actions, ActionScheduleMeeting)
	case IntentQuestion, IntentInformation:
		actions = append(actions, ActionSearchKnowledge)
	case IntentComplaint:
		actions = append(actions, ActionSearchKnowledge)
	}

	if containsAny(text, []string{"document", "file", "attach", "attachment", "report"}) {
		actions = append(actions, ActionAttachDocument)
	}
	if containsAny(text, []string{"confirm", "book", "send", "reply", "respond", "schedule"}) {
		actions = append(actions, ActionSendEmail)
	} else {
		actions = append(actions, ActionSaveDraft)
	}

	return actions
}

func suggestedTone(intent, priority string) string {
	if intent == IntentComplaint {
		return "empathetic"
	}
	if priority == PriorityUrgent {
		return "concise"
	}
	return "professional"
}

func containsAny(text string, values []string) bool {
	for _, v := range values {
		if strings.Contains(text, v) {
			return true
		}
	}
	return false
}
