package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"mailpilot/internal/analyze"
	"mailpilot/internal/attach"
	"mailpilot/internal/gcal"
	"mailpilot/internal/knowledge"
	"mailpilot/internal/mail"
	"mailpilot/internal/search"
)

const (
	// Bodies shorter than this are greetings or one-liners; web search
	// adds nothing for them.
	minBodyForWebSearch = 50

	knowledgeHits      = 3
	maxSlotsInDraft    = 6
	unreadWindow       = 24 * time.Hour
	unreadLimit        = 5
	maxAttachmentChars = 2000
)

// AttachmentText is extracted attachment content included in the draft prompt.
type AttachmentText struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// GatheredContext is the supporting material collected for drafting.
type GatheredContext struct {
	Knowledge    []knowledge.Result `json:"knowledge,omitempty"`
	WebResults   []search.Result    `json:"web_results,omitempty"`
	FreeSlots    []gcal.Slot        `json:"free_slots,omitempty"`
	UnreadCount  int                `json:"unread_count,omitempty"`
	UnreadFrom   []string           `json:"unread_from,omitempty"`
	Attachments  []AttachmentText   `json:"attachments,omitempty"`
	MeetLink     string             `json:"meet_link,omitempty"`
	ScheduledFor *time.Time         `json:"scheduled_for,omitempty"`
	Errors       []string           `json:"errors,omitempty"`
}

// gatherContext collects whatever supporting material the configured
// collaborators can provide. Each source fails independently.
func (e *Engine) gatherContext(ctx context.Context, email mail.Email, analysis *analyze.Analysis) *GatheredContext {
	g := &GatheredContext{}

	if e.knowledge != nil && e.knowledge.IsConfigured() {
		query := strings.TrimSpace(email.Subject + " " + truncate(email.Body, 200))
		hits, err := e.knowledge.Search(query, knowledgeHits)
		if err != nil {
			g.Errors = append(g.Errors, fmt.Sprintf("knowledge search: %v", err))
		} else {
			g.Knowledge = hits
		}
	}

	if e.search != nil && e.search.IsConfigured() && analysis.NeedsExternal && len(email.Body) > minBodyForWebSearch {
		results, err := e.search.Search(ctx, searchQuery(email), search.TypeAIContext)
		if err != nil {
			g.Errors = append(g.Errors, fmt.Sprintf("web search: %v", err))
		} else {
			g.WebResults = results
		}
	}

	if analysis.Intent == analyze.IntentScheduling && e.calendar != nil && e.calendar.IsAuthenticated() {
		from := e.now()
		slots, err := e.calendar.CheckAvailability(e.calendarID, from, from.Add(48*time.Hour))
		if err != nil {
			g.Errors = append(g.Errors, fmt.Sprintf("availability check: %v", err))
		} else {
			if len(slots) > maxSlotsInDraft {
				slots = slots[:maxSlotsInDraft]
			}
			g.FreeSlots = slots
		}
	}

	// Attachments submitted with a local path (API callers download them
	// first) are extracted so their content can inform the reply.
	for _, a := range email.Attachments {
		if a.Path == "" {
			continue
		}
		text, err := attach.Extract(a.Path)
		if err != nil {
			g.Errors = append(g.Errors, fmt.Sprintf("attachment %s: %v", a.Filename, err))
			continue
		}
		g.Attachments = append(g.Attachments, AttachmentText{
			Filename: a.Filename,
			Text:     truncate(text, maxAttachmentChars),
		})
	}

	if e.inbox != nil && e.inbox.IsConfigured() {
		unread, err := e.inbox.FetchUnread(unreadWindow, unreadLimit)
		if err != nil {
			g.Errors = append(g.Errors, fmt.Sprintf("unread inbox: %v", err))
		} else {
			g.UnreadCount = len(unread)
			for _, msg := range unread {
				g.UnreadFrom = append(g.UnreadFrom, msg.From)
			}
		}
	}

	return g
}

// Render formats the gathered context as prompt-ready text.
func (g *GatheredContext) Render() string {
	var sb strings.Builder

	if len(g.Knowledge) > 0 {
		sb.WriteString("Internal knowledge:\n")
		for _, hit := range g.Knowledge {
			fmt.Fprintf(&sb, "- %s: %s\n", hit.Source, hit.Preview)
		}
	}

	if len(g.WebResults) > 0 {
		sb.WriteString("Web search results:\n")
		for _, result := range g.WebResults {
			fmt.Fprintf(&sb, "- %s: %s\n", result.Title, result.Snippet)
		}
	}

	if len(g.FreeSlots) > 0 {
		sb.WriteString("Open calendar slots:\n")
		for _, slot := range g.FreeSlots {
			fmt.Fprintf(&sb, "- %s to %s\n",
				slot.Start.Format("Mon Jan 2 15:04"), slot.End.Format("15:04"))
		}
	}

	if len(g.Attachments) > 0 {
		sb.WriteString("Attachment contents:\n")
		for _, a := range g.Attachments {
			fmt.Fprintf(&sb, "--- %s ---\n%s\n", a.Filename, a.Text)
		}
	}

	if g.MeetLink != "" {
		sb.WriteString("A meeting has been scheduled")
		if g.ScheduledFor != nil {
			fmt.Fprintf(&sb, " for %s", g.ScheduledFor.Format("Mon Jan 2 15:04"))
		}
		fmt.Fprintf(&sb, ". Video link: %s\n", g.MeetLink)
	}

	if g.UnreadCount > 0 {
		fmt.Fprintf(&sb, "Inbox has %d other unread messages (from %s).\n",
			g.UnreadCount, strings.Join(g.UnreadFrom, ", "))
	}

	return sb.String()
}

func searchQuery(email mail.Email) string {
	if strings.TrimSpace(email.Subject) != "" {
		return email.Subject
	}
	return truncate(email.Body, 100)
}

// truncate cuts text at maxLen bytes without splitting a UTF-8 rune.
func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
