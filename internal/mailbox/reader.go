// Package mailbox reads incoming email over IMAP.
package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	gomail "github.com/emersion/go-message/mail"

	// Register charset decoders (windows-1252, iso-8859-*, koi8-r, etc.)
	_ "github.com/emersion/go-message/charset"

	"mailpilot/internal/mail"
)

// Config holds the IMAP account credentials.
type Config struct {
	Server   string // host:port, TLS
	Username string
	Password string
	Folder   string
}

// Reader fetches messages from an IMAP mailbox. Every fetch is read-only,
// so the assistant never flips the Seen flag under the user.
type Reader struct {
	cfg Config
}

func NewReader(cfg Config) *Reader {
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	return &Reader{cfg: cfg}
}

// IsConfigured reports whether IMAP credentials are present.
func (r *Reader) IsConfigured() bool {
	return r.cfg.Server != "" && r.cfg.Username != "" && r.cfg.Password != ""
}

func (r *Reader) dial() (*imapclient.Client, error) {
	c, err := imapclient.DialTLS(r.cfg.Server, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s failed: %w", r.cfg.Server, err)
	}
	if err := c.Login(r.cfg.Username, r.cfg.Password).Wait(); err != nil {
		c.Close()
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return c, nil
}

// FetchUnread returns unread messages from the configured folder, oldest
// first, capped to limit. since bounds how far back to look.
func (r *Reader) FetchUnread(since time.Duration, limit int) ([]mail.Email, error) {
	if limit <= 0 {
		limit = 10
	}

	c, err := r.dial()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if _, err := c.Select(r.cfg.Folder, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("SELECT %s failed: %w", r.cfg.Folder, err)
	}

	cutoff := time.Now().Add(-since)
	// IMAP SINCE is day-level, refine client-side below
	searchDay := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, cutoff.Location())
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   searchDay,
	}

	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("SEARCH failed: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	var uidSet imap.UIDSet
	uidSet.AddNum(uids...)
	msgs, err := c.Fetch(uidSet, &imap.FetchOptions{Envelope: true, UID: true}).Collect()
	if err != nil {
		return nil, fmt.Errorf("FETCH envelopes failed: %w", err)
	}

	filtered := msgs[:0]
	for _, m := range msgs {
		if m.Envelope != nil && !m.Envelope.Date.Before(cutoff) {
			filtered = append(filtered, m)
		}
	}
	msgs = filtered
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}

	emails := make([]mail.Email, 0, len(msgs))
	for _, m := range msgs {
		email := mail.Email{
			MessageID: m.Envelope.MessageID,
			Subject:   decodeHeader(m.Envelope.Subject),
			Date:      m.Envelope.Date,
		}
		if len(m.Envelope.From) > 0 {
			from := m.Envelope.From[0]
			email.From = strings.ToLower(fmt.Sprintf("%s@%s", from.Mailbox, from.Host))
			email.FromName = decodeHeader(from.Name)
		}
		for _, to := range m.Envelope.To {
			email.To = append(email.To, fmt.Sprintf("%s@%s", to.Mailbox, to.Host))
		}

		// Fetch the body in a second pass; a missing body is not fatal
		if body, attachments, err := r.fetchBody(c, m.UID); err == nil {
			email.Body = body
			email.Attachments = attachments
		}

		emails = append(emails, email)
	}

	return emails, nil
}

// fetchBody downloads and parses one message body without marking it read.
func (r *Reader) fetchBody(c *imapclient.Client, uid imap.UID) (string, []mail.Attachment, error) {
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	var uidSet imap.UIDSet
	uidSet.AddNum(uid)

	fetchCmd := c.Fetch(uidSet, fetchOpts)
	msgData := fetchCmd.Next()
	if msgData == nil {
		fetchCmd.Close()
		return "", nil, fmt.Errorf("message UID %d not found", uid)
	}

	var body string
	var attachments []mail.Attachment
	for {
		item := msgData.Next()
		if item == nil {
			break
		}
		section, ok := item.(imapclient.FetchItemDataBodySection)
		if !ok {
			continue
		}

		rawBytes, err := io.ReadAll(section.Literal)
		if err != nil || len(rawBytes) == 0 {
			continue
		}

		body, attachments = parseMessage(rawBytes)
	}

	if err := fetchCmd.Close(); err != nil {
		return body, attachments, fmt.Errorf("FETCH failed: %w", err)
	}
	return body, attachments, nil
}

// parseMessage extracts a text body and attachment metadata from a raw
// RFC 5322 message. HTML bodies are converted to markdown.
func parseMessage(rawBytes []byte) (string, []mail.Attachment) {
	mr, err := gomail.CreateReader(bytes.NewReader(rawBytes))
	if err != nil {
		return CleanBody(rawBody(rawBytes)), nil
	}

	var plainText, htmlText string
	var attachments []mail.Attachment
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		switch h := p.Header.(type) {
		case *gomail.InlineHeader:
			ct, _, _ := mime.ParseMediaType(h.Get("Content-Type"))
			b, readErr := io.ReadAll(p.Body)
			if readErr != nil {
				continue
			}
			switch ct {
			case "text/html":
				htmlText = string(b)
			default:
				plainText = string(b)
			}
		case *gomail.AttachmentHeader:
			name, _ := h.Filename()
			ct, _, _ := mime.ParseMediaType(h.Get("Content-Type"))
			attachments = append(attachments, mail.Attachment{
				Filename: name,
				MIMEType: ct,
			})
		}
	}

	// Prefer plain text, fall back to HTML converted to markdown
	var body string
	switch {
	case plainText != "":
		body = plainText
	case htmlText != "":
		if md, err := htmltomarkdown.ConvertString(htmlText); err == nil {
			body = md
		} else {
			body = htmlText
		}
	default:
		body = rawBody(rawBytes)
	}

	// Signatures and quoted thread history only pollute analysis.
	return CleanBody(body), attachments
}

// rawBody extracts everything after the header block of a raw message.
func rawBody(rawBytes []byte) string {
	if idx := bytes.Index(rawBytes, []byte("\r\n\r\n")); idx >= 0 {
		return strings.TrimSpace(string(rawBytes[idx+4:]))
	}
	if idx := bytes.Index(rawBytes, []byte("\n\n")); idx >= 0 {
		return strings.TrimSpace(string(rawBytes[idx+2:]))
	}
	return ""
}

// decodeHeader decodes RFC 2047 encoded-words (=?charset?encoding?text?=) in a header value.
var mimeWordDecoder = &mime.WordDecoder{}

func decodeHeader(s string) string {
	decoded, err := mimeWordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}
