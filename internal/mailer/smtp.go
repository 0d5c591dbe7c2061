package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/smtp"
	"os"
	"path/filepath"
	"time"

	gomail "github.com/emersion/go-message/mail"
)

// SMTPSender delivers mail through an SMTP relay with STARTTLS.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
}

func NewSMTPSender(host string, port int, username, password, from, fromName string) *SMTPSender {
	if from == "" {
		from = username
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
	}
}

// IsConfigured returns true if the sender has server-side config
func (s *SMTPSender) IsConfigured() bool {
	return s.host != "" && s.username != "" && s.password != ""
}

// Name returns the sender type name
func (s *SMTPSender) Name() string {
	return "smtp"
}

// Send composes a MIME message and delivers it. ctx bounds the whole
// exchange; net/smtp has no context support so cancellation is checked
// up front and the dial is left to its own timeout.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := s.compose(msg)
	if err != nil {
		return fmt.Errorf("failed to compose message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := smtp.SendMail(addr, auth, s.from, msg.To, raw); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	fmt.Printf("Email sent via SMTP to %v: %s\n", msg.To, msg.Subject)
	return nil
}

// compose builds the full RFC 5322 message, multipart when attachments
// are present.
func (s *SMTPSender) compose(msg *Message) ([]byte, error) {
	var buf bytes.Buffer

	var header gomail.Header
	header.SetDate(time.Now())
	header.SetAddressList("From", []*gomail.Address{{Name: s.fromName, Address: s.from}})

	to := make([]*gomail.Address, len(msg.To))
	for i, addr := range msg.To {
		to[i] = &gomail.Address{Address: addr}
	}
	header.SetAddressList("To", to)
	header.SetSubject(msg.Subject)

	mw, err := gomail.CreateWriter(&buf, header)
	if err != nil {
		return nil, err
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	var textHeader gomail.InlineHeader
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	pw, err := iw.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(pw, msg.Body); err != nil {
		return nil, err
	}
	pw.Close()
	iw.Close()

	for _, path := range msg.Attachments {
		if err := attachFile(mw, path); err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", path, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func attachFile(mw *gomail.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var header gomail.AttachmentHeader
	header.SetFilename(filepath.Base(path))

	aw, err := mw.CreateAttachment(header)
	if err != nil {
		return err
	}
	defer aw.Close()

	_, err = io.Copy(aw, f)
	return err
}
