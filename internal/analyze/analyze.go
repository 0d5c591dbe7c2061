// Package analyze classifies incoming email into intent, priority and the
// actions a reply will require.
package analyze

import (
	"context"

	"mailpilot/internal/mail"
)

// Intent classifications for incoming email.
const (
	IntentQuestion    = "question"
	IntentRequest     = "request"
	IntentComplaint   = "complaint"
	IntentScheduling  = "scheduling"
	IntentInformation = "information"
	IntentUnknown     = "unknown"
)

// Priority levels for incoming email.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Actions a classified email can require.
const (
	ActionScheduleMeeting = "schedule_meeting"
	ActionSendEmail       = "send_email"
	ActionAttachDocument  = "attach_document"
	ActionSearchKnowledge = "search_knowledge_base"
	ActionSaveDraft       = "save_draft"
)

// Analysis is the classification result for one email.
type Analysis struct {
	Intent          string   `json:"intent"`
	Priority        string   `json:"priority"`
	RequiredActions []string `json:"required_actions,omitempty"`
	NeedsExternal   bool     `json:"needs_external_info"`
	SuggestedTone   string   `json:"suggested_tone"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning,omitempty"`
}

// Analyzer classifies an email. Implementations may call out to a model;
// IsConfigured reports whether the implementation is usable.
type Analyzer interface {
	AnalyzeEmail(ctx context.Context, email mail.Email) (*Analysis, error)
	IsConfigured() bool
}

// HasAction reports whether the analysis requires the given action.
func (a *Analysis) HasAction(action string) bool {
	for _, act := range a.RequiredActions {
		if act == action {
			return true
		}
	}
	return false
}

// RequiresExecution reports whether any side-effecting action is required.
// Lookup-only actions like knowledge search happen during context gathering.
func (a *Analysis) RequiresExecution() bool {
	for _, act := range a.RequiredActions {
		switch act {
		case ActionScheduleMeeting, ActionSendEmail, ActionSaveDraft:
			return true
		}
	}
	return false
}
