package mailer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/resend/resend-go/v2"
)

// ResendSender delivers mail via the Resend API, for accounts without
// SMTP credentials.
type ResendSender struct {
	client      *resend.Client
	fromAddress string
	fromName    string
}

func NewResendSender(apiKey, from, fromName string) *ResendSender {
	if apiKey == "" {
		return nil
	}
	return &ResendSender{
		client:      resend.NewClient(apiKey),
		fromAddress: from,
		fromName:    fromName,
	}
}

// IsConfigured returns true if the sender has server-side config
func (r *ResendSender) IsConfigured() bool {
	return r != nil && r.client != nil && r.fromAddress != ""
}

// Name returns the sender type name
func (r *ResendSender) Name() string {
	return "resend"
}

// Send delivers the message. Attachment files are read and carried
// inline in the API request.
func (r *ResendSender) Send(ctx context.Context, msg *Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	from := r.fromAddress
	if r.fromName != "" {
		from = fmt.Sprintf("%s <%s>", r.fromName, r.fromAddress)
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Body,
		Html:    textToHTML(msg.Body),
	}
	for _, path := range msg.Attachments {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read attachment %s: %w", path, err)
		}
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename: filepath.Base(path),
			Content:  content,
		})
	}

	_, err := r.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}

	fmt.Printf("Email sent via Resend to %v: %s\n", msg.To, msg.Subject)
	return nil
}
