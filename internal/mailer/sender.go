// Package mailer sends outgoing email through SMTP or the Resend API.
package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// Message is an outgoing email.
type Message struct {
	To          []string
	Subject     string
	Body        string   // plain text
	Attachments []string // local file paths
}

// Sender delivers outgoing email
type Sender interface {
	// Send delivers the message
	Send(ctx context.Context, msg *Message) error
	// Name returns the sender type name (for logging)
	Name() string
	// IsConfigured returns true if the sender has server-side config
	IsConfigured() bool
}

// Pick returns the first configured sender, or nil when none is usable.
func Pick(senders ...Sender) Sender {
	for _, s := range senders {
		if s != nil && s.IsConfigured() {
			return s
		}
	}
	return nil
}

func validateMessage(msg *Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipient specified")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	return nil
}

// textToHTML renders a plain-text body as minimal HTML paragraphs.
func textToHTML(body string) string {
	var sb strings.Builder
	sb.WriteString("<div style=\"font-family: -apple-system, Segoe UI, Roboto, Arial, sans-serif; white-space: pre-line;\">")
	for _, para := range strings.Split(body, "\n\n") {
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(strings.TrimSpace(para)))
		sb.WriteString("</p>")
	}
	sb.WriteString("</div>")
	return sb.String()
}
