package claude

import (
	"context"
	"fmt"
	"strings"

	"mailpilot/internal/analyze"
	"mailpilot/internal/mail"
)

// TemplateDrafter produces canned replies by intent. It is the drafting
// fallback when no API key is configured, so the workflow always finishes.
type TemplateDrafter struct{}

func NewTemplateDrafter() *TemplateDrafter {
	return &TemplateDrafter{}
}

func (t *TemplateDrafter) IsConfigured() bool {
	return true
}

// DraftFor writes a reply body for the email based on its classified intent.
func (t *TemplateDrafter) DraftFor(_ context.Context, email mail.Email, analysis *analyze.Analysis) (string, error) {
	greeting := "Hello,"
	if name := firstName(email.FromName); name != "" {
		greeting = fmt.Sprintf("Hi %s,", name)
	}

	var body string
	switch analysis.Intent {
	case analyze.IntentScheduling:
		body = "Thank you for reaching out about scheduling. I've checked the calendar and will follow up shortly with a few time slots that work."
	case analyze.IntentQuestion:
		body = "Thanks for your question. I'm looking into it and will get back to you with a complete answer as soon as possible."
	case analyze.IntentComplaint:
		body = "I'm sorry to hear about the trouble you've run into. I've flagged this for review and we will follow up with you directly to make it right."
	case analyze.IntentRequest:
		body = "Thanks for your request. I've noted it and will follow up once it has been taken care of."
	case analyze.IntentInformation:
		body = "Thank you for the update. I've noted the information you shared."
	default:
		body = "Thank you for your email. I've received it and will follow up shortly."
	}

	return fmt.Sprintf("%s\n\n%s\n\nBest regards,", greeting, body), nil
}

func firstName(full string) string {
	full = strings.TrimSpace(full)
	if full == "" {
		return ""
	}
	if idx := strings.IndexByte(full, ' '); idx > 0 {
		return full[:idx]
	}
	return full
}
