// Package mail holds the email value types shared across the service.
package mail

import (
	"strings"
	"time"
)

// Email is an incoming message as seen by the workflow.
type Email struct {
	MessageID   string       `json:"message_id,omitempty"`
	From        string       `json:"from"`
	FromName    string       `json:"from_name,omitempty"`
	To          []string     `json:"to,omitempty"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Date        time.Time    `json:"date,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment describes a file attached to an email. Content is only
// populated for attachments that were downloaded.
type Attachment struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Path     string `json:"path,omitempty"`
}

// ReplySubject derives the subject for a reply, adding "Re:" only once.
func (e Email) ReplySubject() string {
	trimmed := strings.TrimSpace(e.Subject)
	if trimmed == "" {
		return "Re: (no subject)"
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}
