package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpilot/internal/analyze"
	"mailpilot/internal/database"
	"mailpilot/internal/gcal"
	"mailpilot/internal/knowledge"
	"mailpilot/internal/mail"
	"mailpilot/internal/mailer"
	"mailpilot/internal/search"
)

type fakeAnalyzer struct {
	analysis *analyze.Analysis
	err      error
}

func (f *fakeAnalyzer) AnalyzeEmail(_ context.Context, _ mail.Email) (*analyze.Analysis, error) {
	return f.analysis, f.err
}

func (f *fakeAnalyzer) IsConfigured() bool { return true }

type fakeDrafter struct {
	draft string
	err   error
	calls int
}

func (f *fakeDrafter) DraftReply(_ context.Context, _ mail.Email, _, _ string) (string, error) {
	f.calls++
	return f.draft, f.err
}

func (f *fakeDrafter) IsConfigured() bool { return true }
func (f *fakeDrafter) Model() string      { return "fake-model" }

type fakeSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query, _ string) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func (f *fakeSearcher) IsConfigured() bool { return true }

type fakeKnowledge struct {
	results []knowledge.Result
	err     error
}

func (f *fakeKnowledge) Search(_ string, _ int) ([]knowledge.Result, error) {
	return f.results, f.err
}

func (f *fakeKnowledge) IsConfigured() bool { return true }

type fakeCalendar struct {
	slots     []gcal.Slot
	slotsErr  error
	meeting   *gcal.Meeting
	schedErr  error
	scheduled []gcal.MeetingInput
}

func (f *fakeCalendar) IsAuthenticated() bool { return true }

func (f *fakeCalendar) CheckAvailability(_ string, _, _ time.Time) ([]gcal.Slot, error) {
	return f.slots, f.slotsErr
}

func (f *fakeCalendar) ScheduleMeeting(_ string, input gcal.MeetingInput) (*gcal.Meeting, error) {
	f.scheduled = append(f.scheduled, input)
	return f.meeting, f.schedErr
}

type fakeSender struct {
	sent []*mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg *mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) Name() string       { return "fake" }
func (f *fakeSender) IsConfigured() bool { return true }

type fakeInboxReader struct {
	emails []mail.Email
	err    error
}

func (f *fakeInboxReader) FetchUnread(_ time.Duration, _ int) ([]mail.Email, error) {
	return f.emails, f.err
}

func (f *fakeInboxReader) IsConfigured() bool { return true }

func questionAnalysis() *analyze.Analysis {
	return &analyze.Analysis{
		Intent:          analyze.IntentQuestion,
		Priority:        analyze.PriorityNormal,
		RequiredActions: []string{analyze.ActionSearchKnowledge},
		SuggestedTone:   "professional",
		Confidence:      0.9,
	}
}

func schedulingAnalysis() *analyze.Analysis {
	return &analyze.Analysis{
		Intent:          analyze.IntentScheduling,
		Priority:        analyze.PriorityNormal,
		RequiredActions: []string{analyze.ActionScheduleMeeting, analyze.ActionSendEmail},
		SuggestedTone:   "professional",
		Confidence:      0.9,
	}
}

func testEmail() mail.Email {
	return mail.Email{
		MessageID: "<msg-1@example.com>",
		From:      "alice@example.com",
		FromName:  "Alice",
		Subject:   "Question about billing",
		Body:      "Can you explain the invoice from last month? It looks higher than usual.",
		Date:      time.Now(),
	}
}

func TestRunQuestionSkipsExecution(t *testing.T) {
	db := database.NewTestDB(t)
	drafter := &fakeDrafter{draft: "Happy to explain. The invoice includes the annual fee."}

	engine := NewEngine(Config{
		DB:        db,
		Analyzer:  &fakeAnalyzer{analysis: questionAnalysis()},
		Drafter:   drafter,
		Knowledge: &fakeKnowledge{results: []knowledge.Result{{Source: "billing.md", Preview: "Annual fees bill in March."}}},
	})

	result, err := engine.Run(context.Background(), testEmail())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, drafter.draft, result.Draft)
	assert.Equal(t, "fake-model", result.Model)
	require.NotNil(t, result.Evaluation)
	assert.Len(t, result.Context.Knowledge, 1)

	// Knowledge lookup is not a side effect, so the only recorded
	// action is the draft save.
	require.Len(t, result.Actions, 1)
	assert.Equal(t, analyze.ActionSaveDraft, result.Actions[0].Action)
	assert.Equal(t, "completed", result.Actions[0].Status)

	drafts, err := db.ListDrafts(10)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "alice@example.com", drafts[0].Recipient)
	assert.Equal(t, "Re: Question about billing", drafts[0].Subject)

	traces, err := db.ListTracesForRun(result.RunID)
	require.NoError(t, err)
	stages := make([]string, len(traces))
	for i, trace := range traces {
		stages[i] = trace.Stage
	}
	assert.Equal(t, []string{"analyze", "gather_context", "generate_response", "review", "deliver"}, stages)
}

func TestRunSchedulingExecutesMeeting(t *testing.T) {
	db := database.NewTestDB(t)
	start := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	cal := &fakeCalendar{
		slots:   []gcal.Slot{{Start: start, End: start.Add(30 * time.Minute)}},
		meeting: &gcal.Meeting{EventID: "evt-1", MeetLink: "https://meet.example.com/abc"},
	}

	engine := NewEngine(Config{
		DB:       db,
		Analyzer: &fakeAnalyzer{analysis: schedulingAnalysis()},
		Drafter:  &fakeDrafter{draft: "Scheduled for Tuesday, see the link."},
		Calendar: cal,
	})

	email := testEmail()
	email.Subject = "Meeting about Q2 roadmap"

	result, err := engine.Run(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)

	require.Len(t, cal.scheduled, 1)
	assert.Equal(t, "Meeting: Meeting about Q2 roadmap", cal.scheduled[0].Title)
	assert.Equal(t, []string{"alice@example.com"}, cal.scheduled[0].Attendees)
	assert.True(t, cal.scheduled[0].WithMeet)

	assert.Equal(t, "https://meet.example.com/abc", result.Context.MeetLink)
	assert.Len(t, result.Context.FreeSlots, 1)

	var scheduleRecord *ActionRecord
	for i := range result.Actions {
		if result.Actions[i].Action == analyze.ActionScheduleMeeting {
			scheduleRecord = &result.Actions[i]
		}
	}
	require.NotNil(t, scheduleRecord)
	assert.Equal(t, "completed", scheduleRecord.Status)

	meetings, err := db.ListUpcomingMeetings(start.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "evt-1", *meetings[0].GoogleEventID)
}

func TestRunAutoSend(t *testing.T) {
	sender := &fakeSender{}

	engine := NewEngine(Config{
		Analyzer: &fakeAnalyzer{analysis: &analyze.Analysis{
			Intent:          analyze.IntentRequest,
			Priority:        analyze.PriorityNormal,
			RequiredActions: []string{analyze.ActionSendEmail},
			SuggestedTone:   "professional",
		}},
		Drafter:  &fakeDrafter{draft: "Done, the report is on its way."},
		Sender:   sender,
		AutoSend: true,
	})

	result, err := engine.Run(context.Background(), testEmail())
	require.NoError(t, err)

	assert.True(t, result.AutoSent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"alice@example.com"}, sender.sent[0].To)
	assert.Equal(t, "Re: Question about billing", sender.sent[0].Subject)
}

func TestRunSendFailureFallsBackToDraft(t *testing.T) {
	db := database.NewTestDB(t)

	engine := NewEngine(Config{
		DB: db,
		Analyzer: &fakeAnalyzer{analysis: &analyze.Analysis{
			Intent:          analyze.IntentRequest,
			Priority:        analyze.PriorityNormal,
			RequiredActions: []string{analyze.ActionSendEmail},
		}},
		Drafter:  &fakeDrafter{draft: "A reply."},
		Sender:   &fakeSender{err: errors.New("smtp down")},
		AutoSend: true,
	})

	result, err := engine.Run(context.Background(), testEmail())
	require.NoError(t, err)

	assert.False(t, result.AutoSent)
	statuses := map[string]string{}
	for _, action := range result.Actions {
		statuses[action.Action] = action.Status
	}
	assert.Equal(t, "failed", statuses[analyze.ActionSendEmail])
	assert.Equal(t, "completed", statuses[analyze.ActionSaveDraft])

	drafts, err := db.ListDrafts(10)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestRunAnalysisFailure(t *testing.T) {
	engine := NewEngine(Config{
		Analyzer: &fakeAnalyzer{err: errors.New("model unavailable")},
	})

	result, err := engine.Run(context.Background(), testEmail())
	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
	assert.Contains(t, result.Error, "analysis failed")
}

func TestRunPartialContextFailuresDoNotFail(t *testing.T) {
	engine := NewEngine(Config{
		Analyzer: &fakeAnalyzer{analysis: &analyze.Analysis{
			Intent:        analyze.IntentQuestion,
			Priority:      analyze.PriorityNormal,
			NeedsExternal: true,
			SuggestedTone: "professional",
		}},
		Drafter:   &fakeDrafter{draft: "A reply."},
		Knowledge: &fakeKnowledge{err: errors.New("corpus unreadable")},
		Search:    &fakeSearcher{err: errors.New("all engines down")},
	})

	result, err := engine.Run(context.Background(), testEmail())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.Len(t, result.Context.Errors, 2)
}

func TestRunDrafterFailureUsesTemplate(t *testing.T) {
	engine := NewEngine(Config{
		Analyzer: &fakeAnalyzer{analysis: questionAnalysis()},
		Drafter:  &fakeDrafter{err: errors.New("rate limited")},
	})

	result, err := engine.Run(context.Background(), testEmail())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, "template", result.Model)
	assert.NotEmpty(t, result.Draft)
}

func TestRunWebSearchGating(t *testing.T) {
	t.Run("short body skips search", func(t *testing.T) {
		searcher := &fakeSearcher{}
		engine := NewEngine(Config{
			Analyzer: &fakeAnalyzer{analysis: &analyze.Analysis{
				Intent:        analyze.IntentQuestion,
				Priority:      analyze.PriorityNormal,
				NeedsExternal: true,
			}},
			Drafter: &fakeDrafter{draft: "ok"},
			Search:  searcher,
		})

		email := testEmail()
		email.Body = "Quick question."
		_, err := engine.Run(context.Background(), email)
		require.NoError(t, err)
		assert.Empty(t, searcher.queries)
	})

	t.Run("no external info skips search", func(t *testing.T) {
		searcher := &fakeSearcher{}
		engine := NewEngine(Config{
			Analyzer: &fakeAnalyzer{analysis: &analyze.Analysis{
				Intent:        analyze.IntentQuestion,
				Priority:      analyze.PriorityNormal,
				NeedsExternal: false,
			}},
			Drafter: &fakeDrafter{draft: "ok"},
			Search:  searcher,
		})

		_, err := engine.Run(context.Background(), testEmail())
		require.NoError(t, err)
		assert.Empty(t, searcher.queries)
	})

	t.Run("substantial body searches", func(t *testing.T) {
		searcher := &fakeSearcher{results: []search.Result{{Title: "Pricing", Snippet: "Plans start at 10."}}}
		engine := NewEngine(Config{
			Analyzer: &fakeAnalyzer{analysis: &analyze.Analysis{
				Intent:        analyze.IntentQuestion,
				Priority:      analyze.PriorityNormal,
				NeedsExternal: true,
			}},
			Drafter: &fakeDrafter{draft: "ok"},
			Search:  searcher,
		})

		result, err := engine.Run(context.Background(), testEmail())
		require.NoError(t, err)
		require.Len(t, searcher.queries, 1)
		assert.Equal(t, "Question about billing", searcher.queries[0])
		assert.Len(t, result.Context.WebResults, 1)
	})
}

func TestRunGathersUnreadInbox(t *testing.T) {
	inbox := &fakeInboxReader{emails: []mail.Email{
		{From: "bob@example.com", Subject: "Invoice"},
		{From: "carol@example.com", Subject: "Standup notes"},
	}}

	engine := NewEngine(Config{
		Analyzer: &fakeAnalyzer{analysis: questionAnalysis()},
		Drafter:  &fakeDrafter{draft: "ok"},
		Inbox:    inbox,
	})

	result, err := engine.Run(context.Background(), testEmail())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Context.UnreadCount)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, result.Context.UnreadFrom)
	assert.Contains(t, result.Context.Render(),
		"2 other unread messages (from bob@example.com, carol@example.com)")
	assert.Empty(t, result.Context.Errors)
}

func TestRunUnreadInboxFailureRecorded(t *testing.T) {
	engine := NewEngine(Config{
		Analyzer: &fakeAnalyzer{analysis: questionAnalysis()},
		Drafter:  &fakeDrafter{draft: "ok"},
		Inbox:    &fakeInboxReader{err: errors.New("imap connection refused")},
	})

	result, err := engine.Run(context.Background(), testEmail())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	require.Len(t, result.Context.Errors, 1)
	assert.Contains(t, result.Context.Errors[0], "unread inbox")
	assert.Zero(t, result.Context.UnreadCount)
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	text := strings.Repeat("é", 60)
	got := truncate(text, 101)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, 100)
}

func TestRunExtractsAttachments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Budget approved for Q2."), 0644))

	engine := NewEngine(Config{
		Analyzer: &fakeAnalyzer{analysis: questionAnalysis()},
		Drafter:  &fakeDrafter{draft: "ok"},
	})

	email := testEmail()
	email.Attachments = []mail.Attachment{
		{Filename: "notes.txt", Path: path},
		{Filename: "missing.pdf", Path: filepath.Join(dir, "missing.pdf")},
		{Filename: "metadata-only.zip"},
	}

	result, err := engine.Run(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)

	require.Len(t, result.Context.Attachments, 1)
	assert.Equal(t, "notes.txt", result.Context.Attachments[0].Filename)
	assert.Equal(t, "Budget approved for Q2.", result.Context.Attachments[0].Text)
	assert.Contains(t, result.Context.Render(), "--- notes.txt ---")

	// The unreadable attachment is recorded, not fatal.
	require.Len(t, result.Context.Errors, 1)
	assert.Contains(t, result.Context.Errors[0], "missing.pdf")
}

func TestGatheredContextRender(t *testing.T) {
	start := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	g := &GatheredContext{
		Knowledge:  []knowledge.Result{{Source: "faq.md", Preview: "Refunds take 5 days."}},
		WebResults: []search.Result{{Title: "Status page", Snippet: "All systems go."}},
		FreeSlots:  []gcal.Slot{{Start: start, End: start.Add(30 * time.Minute)}},
		MeetLink:   "https://meet.example.com/abc",
		UnreadFrom: []string{"bob@example.com"},
	}
	g.UnreadCount = 1

	text := g.Render()
	assert.Contains(t, text, "faq.md: Refunds take 5 days.")
	assert.Contains(t, text, "Status page: All systems go.")
	assert.Contains(t, text, "Tue Mar 3 10:00 to 10:30")
	assert.Contains(t, text, "https://meet.example.com/abc")
	assert.Contains(t, text, "1 other unread messages")
}
