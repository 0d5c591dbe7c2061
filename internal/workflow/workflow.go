// Package workflow runs incoming email through the processing pipeline:
// analyze, gather context, execute actions, generate a reply, review.
package workflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"mailpilot/internal/analyze"
	"mailpilot/internal/claude"
	"mailpilot/internal/database"
	"mailpilot/internal/gcal"
	"mailpilot/internal/knowledge"
	"mailpilot/internal/mail"
	"mailpilot/internal/mailer"
	"mailpilot/internal/review"
	"mailpilot/internal/search"
)

// State is the workflow's current stage.
type State string

const (
	StateInitialized      State = "initialized"
	StateAnalyzing        State = "analyzing"
	StateGatheringContext State = "gathering_context"
	StateExecutingActions State = "executing_actions"
	StateGenerating       State = "generating"
	StateReviewing        State = "reviewing"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

// Stage names recorded in workflow traces.
const (
	stageAnalyze        = "analyze"
	stageGatherContext  = "gather_context"
	stageExecuteActions = "execute_actions"
	stageGenerate       = "generate_response"
	stageReview         = "review"
	stageDeliver        = "deliver"
)

// Drafter generates a reply with a language model.
type Drafter interface {
	DraftReply(ctx context.Context, email mail.Email, gathered, tone string) (string, error)
	IsConfigured() bool
	Model() string
}

// FallbackDrafter generates a reply without a model, from the analysis alone.
type FallbackDrafter interface {
	DraftFor(ctx context.Context, email mail.Email, analysis *analyze.Analysis) (string, error)
}

// Searcher performs web search.
type Searcher interface {
	Search(ctx context.Context, query, searchType string) ([]search.Result, error)
	IsConfigured() bool
}

// KnowledgeSearcher searches the internal document store.
type KnowledgeSearcher interface {
	Search(query string, limit int) ([]knowledge.Result, error)
	IsConfigured() bool
}

// Calendar checks availability and schedules meetings.
type Calendar interface {
	IsAuthenticated() bool
	CheckAvailability(calendarID string, from, to time.Time) ([]gcal.Slot, error)
	ScheduleMeeting(calendarID string, input gcal.MeetingInput) (*gcal.Meeting, error)
}

// InboxReader fetches unread mail for inbox context.
type InboxReader interface {
	FetchUnread(since time.Duration, limit int) ([]mail.Email, error)
	IsConfigured() bool
}

// Config wires the engine's collaborators. Everything except Analyzer
// is optional; missing pieces degrade the pipeline instead of breaking it.
type Config struct {
	DB         *database.DB
	Analyzer   analyze.Analyzer
	Drafter    Drafter
	Fallback   FallbackDrafter
	Search     Searcher
	Knowledge  KnowledgeSearcher
	Calendar   Calendar
	Sender     mailer.Sender
	Inbox      InboxReader
	CalendarID string
	AutoSend   bool
}

// Engine orchestrates a single email through the pipeline stages.
type Engine struct {
	db         *database.DB
	analyzer   analyze.Analyzer
	drafter    Drafter
	fallback   FallbackDrafter
	search     Searcher
	knowledge  KnowledgeSearcher
	calendar   Calendar
	sender     mailer.Sender
	inbox      InboxReader
	calendarID string
	autoSend   bool

	now func() time.Time
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		db:         cfg.DB,
		analyzer:   cfg.Analyzer,
		drafter:    cfg.Drafter,
		fallback:   cfg.Fallback,
		search:     cfg.Search,
		knowledge:  cfg.Knowledge,
		calendar:   cfg.Calendar,
		sender:     cfg.Sender,
		inbox:      cfg.Inbox,
		calendarID: cfg.CalendarID,
		autoSend:   cfg.AutoSend,
		now:        time.Now,
	}
	if e.analyzer == nil {
		e.analyzer = analyze.NewKeywordAnalyzer()
	}
	if e.fallback == nil {
		e.fallback = claude.NewTemplateDrafter()
	}
	return e
}

// ActionRecord is one side-effecting action the workflow took.
type ActionRecord struct {
	Action    string    `json:"action"`
	Status    string    `json:"status"` // completed, failed, skipped
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is the outcome of one workflow run.
type Result struct {
	RunID        string             `json:"run_id"`
	State        State              `json:"state"`
	EmailID      int64              `json:"email_id,omitempty"`
	Analysis     *analyze.Analysis  `json:"analysis,omitempty"`
	Context      *GatheredContext   `json:"context,omitempty"`
	Draft        string             `json:"draft,omitempty"`
	Evaluation   *review.Evaluation `json:"evaluation,omitempty"`
	Actions      []ActionRecord     `json:"actions,omitempty"`
	FollowUps    []string           `json:"follow_ups,omitempty"`
	AutoSent     bool               `json:"auto_sent"`
	Model        string             `json:"model,omitempty"`
	ProcessingMs int64              `json:"processing_ms"`
	Error        string             `json:"error,omitempty"`
}

// Run walks the email through the pipeline. Stage failures flip the
// state to failed and surface the error on the Result; partial context
// failures do not fail the run.
func (e *Engine) Run(ctx context.Context, email mail.Email) (*Result, error) {
	started := e.now()
	result := &Result{RunID: newRunID(), State: StateInitialized}

	emailID := e.persistEmail(email)
	result.EmailID = emailID

	// Stage 1: classify the email.
	result.State = StateAnalyzing
	stageStart := e.now()
	analysis, err := e.analyzer.AnalyzeEmail(ctx, email)
	if err != nil {
		e.recordStage(emailID, result.RunID, stageAnalyze, "failed",
			map[string]any{"error": err.Error()}, e.since(stageStart))
		return e.fail(result, started, fmt.Errorf("analysis failed: %w", err))
	}
	result.Analysis = analysis
	e.recordStage(emailID, result.RunID, stageAnalyze, "completed", map[string]any{
		"intent":     analysis.Intent,
		"priority":   analysis.Priority,
		"confidence": analysis.Confidence,
	}, e.since(stageStart))
	if e.db != nil && emailID > 0 {
		if err := e.db.UpdateEmailAnalysis(emailID, analysis.Intent, analysis.Priority); err != nil {
			fmt.Printf("Warning: failed to store email analysis: %v\n", err)
		}
	}

	// Stage 2: gather supporting context. Failures here degrade the
	// draft, they never abort the run.
	result.State = StateGatheringContext
	stageStart = e.now()
	gathered := e.gatherContext(ctx, email, analysis)
	result.Context = gathered
	e.recordStage(emailID, result.RunID, stageGatherContext, "completed", map[string]any{
		"knowledge_hits": len(gathered.Knowledge),
		"web_hits":       len(gathered.WebResults),
		"free_slots":     len(gathered.FreeSlots),
		"errors":         gathered.Errors,
	}, e.since(stageStart))

	// Stage 3: only runs when the analysis asks for side effects.
	if analysis.RequiresExecution() {
		result.State = StateExecutingActions
		stageStart = e.now()
		e.executeActions(ctx, email, emailID, analysis, gathered, result)
		e.recordStage(emailID, result.RunID, stageExecuteActions, "completed",
			map[string]any{"actions": len(result.Actions)}, e.since(stageStart))
	}

	// Stage 4: draft the reply.
	result.State = StateGenerating
	stageStart = e.now()
	draft, model, err := e.generate(ctx, email, analysis, gathered)
	generationMs := e.since(stageStart).Milliseconds()
	if err != nil {
		e.recordStage(emailID, result.RunID, stageGenerate, "failed",
			map[string]any{"error": err.Error()}, e.since(stageStart))
		return e.fail(result, started, fmt.Errorf("generation failed: %w", err))
	}
	result.Draft = draft
	result.Model = model
	e.recordStage(emailID, result.RunID, stageGenerate, "completed",
		map[string]any{"model": model, "chars": len(draft)}, e.since(stageStart))

	// Stage 5: score the reply and suggest follow-ups.
	result.State = StateReviewing
	stageStart = e.now()
	eval := review.Evaluate(email.Body, draft)
	result.Evaluation = &eval
	result.FollowUps = review.SuggestFollowUps(analysis.Intent, analysis.Priority)
	e.recordStage(emailID, result.RunID, stageReview, "completed",
		map[string]any{"overall_score": eval.OverallScore}, e.since(stageStart))

	// Deliver: auto-send when asked for and allowed, otherwise keep a draft.
	stageStart = e.now()
	e.deliver(ctx, email, emailID, analysis, draft, result)
	e.recordStage(emailID, result.RunID, stageDeliver, "completed",
		map[string]any{"auto_sent": result.AutoSent}, e.since(stageStart))

	e.persistResponse(emailID, analysis, result, generationMs)

	result.State = StateCompleted
	result.ProcessingMs = e.since(started).Milliseconds()
	return result, nil
}

func (e *Engine) fail(result *Result, started time.Time, err error) (*Result, error) {
	result.State = StateFailed
	result.Error = err.Error()
	result.ProcessingMs = e.since(started).Milliseconds()
	return result, err
}

func (e *Engine) since(t time.Time) time.Duration {
	return e.now().Sub(t)
}

// generate drafts with the model when available, falling back to the
// template drafter on error or when no model is configured.
func (e *Engine) generate(ctx context.Context, email mail.Email, analysis *analyze.Analysis, gathered *GatheredContext) (string, string, error) {
	if e.drafter != nil && e.drafter.IsConfigured() {
		draft, err := e.drafter.DraftReply(ctx, email, gathered.Render(), analysis.SuggestedTone)
		if err == nil {
			return draft, e.drafter.Model(), nil
		}
		fmt.Printf("Warning: model draft failed, using template: %v\n", err)
	}

	draft, err := e.fallback.DraftFor(ctx, email, analysis)
	if err != nil {
		return "", "", err
	}
	return draft, "template", nil
}

// executeActions performs the pre-draft side effects. Today that is
// meeting scheduling; sending and draft saving happen after review.
func (e *Engine) executeActions(ctx context.Context, email mail.Email, emailID int64, analysis *analyze.Analysis, gathered *GatheredContext, result *Result) {
	if analysis.HasAction(analyze.ActionScheduleMeeting) {
		result.Actions = append(result.Actions, e.scheduleMeeting(email, emailID, gathered))
	}
}

func (e *Engine) scheduleMeeting(email mail.Email, emailID int64, gathered *GatheredContext) ActionRecord {
	record := ActionRecord{Action: analyze.ActionScheduleMeeting, Timestamp: e.now()}

	if e.calendar == nil || !e.calendar.IsAuthenticated() {
		record.Status = "skipped"
		record.Detail = "calendar not configured"
		return record
	}

	slots := gathered.FreeSlots
	if len(slots) == 0 {
		from := e.now()
		found, err := e.calendar.CheckAvailability(e.calendarID, from, from.Add(48*time.Hour))
		if err != nil {
			record.Status = "failed"
			record.Detail = fmt.Sprintf("availability check failed: %v", err)
			return record
		}
		slots = found
	}
	if len(slots) == 0 {
		record.Status = "skipped"
		record.Detail = "no open slots in the next two days"
		return record
	}

	slot := slots[0]
	title := "Meeting: " + email.Subject
	if email.Subject == "" {
		title = "Meeting with " + email.From
	}

	meeting, err := e.calendar.ScheduleMeeting(e.calendarID, gcal.MeetingInput{
		Title:     title,
		StartTime: slot.Start,
		EndTime:   slot.End,
		Attendees: []string{email.From},
		WithMeet:  true,
	})
	if err != nil {
		record.Status = "failed"
		record.Detail = fmt.Sprintf("scheduling failed: %v", err)
		return record
	}

	gathered.MeetLink = meeting.MeetLink
	gathered.ScheduledFor = &slot.Start
	record.Status = "completed"
	record.Detail = fmt.Sprintf("event %s at %s", meeting.EventID, slot.Start.Format(time.RFC3339))

	if e.db != nil {
		dbMeeting := &database.Meeting{
			GoogleEventID: &meeting.EventID,
			Title:         title,
			StartTime:     slot.Start,
			EndTime:       slot.End,
			Attendees:     []string{email.From},
			Status:        "scheduled",
		}
		if meeting.MeetLink != "" {
			dbMeeting.MeetLink = &meeting.MeetLink
		}
		if emailID > 0 {
			dbMeeting.EmailID = &emailID
		}
		if _, err := e.db.SaveMeeting(dbMeeting); err != nil {
			fmt.Printf("Warning: failed to store meeting: %v\n", err)
		}
	}

	return record
}

// deliver sends the reply when the analysis asks for a send and
// auto-send is enabled; in every other case it saves a draft.
func (e *Engine) deliver(ctx context.Context, email mail.Email, emailID int64, analysis *analyze.Analysis, draft string, result *Result) {
	wantsSend := analysis.HasAction(analyze.ActionSendEmail)

	if wantsSend && e.autoSend && e.sender != nil && e.sender.IsConfigured() {
		record := ActionRecord{Action: analyze.ActionSendEmail, Timestamp: e.now()}
		err := e.sender.Send(ctx, &mailer.Message{
			To:      []string{email.From},
			Subject: email.ReplySubject(),
			Body:    draft,
		})
		if err == nil {
			record.Status = "completed"
			record.Detail = "sent via " + e.sender.Name()
			result.AutoSent = true
			result.Actions = append(result.Actions, record)
			return
		}
		record.Status = "failed"
		record.Detail = err.Error()
		result.Actions = append(result.Actions, record)
	}

	record := ActionRecord{Action: analyze.ActionSaveDraft, Timestamp: e.now(), Status: "completed"}
	if e.db != nil {
		dbDraft := &database.Draft{
			Recipient: email.From,
			Subject:   email.ReplySubject(),
			Body:      draft,
		}
		if emailID > 0 {
			dbDraft.EmailID = &emailID
		}
		id, err := e.db.SaveDraft(dbDraft)
		if err != nil {
			record.Status = "failed"
			record.Detail = err.Error()
		} else {
			record.Detail = fmt.Sprintf("draft %d", id)
		}
	}
	result.Actions = append(result.Actions, record)
}

func (e *Engine) persistEmail(email mail.Email) int64 {
	if e.db == nil {
		return 0
	}

	row := &database.Email{
		Sender:  email.From,
		Subject: email.Subject,
		Body:    email.Body,
	}
	if email.MessageID != "" {
		row.MessageID = &email.MessageID
	}
	if email.FromName != "" {
		row.SenderName = &email.FromName
	}
	if !email.Date.IsZero() {
		received := email.Date
		row.ReceivedAt = &received
	}

	id, err := e.db.SaveEmail(row)
	if err != nil {
		fmt.Printf("Warning: failed to store email: %v\n", err)
		return 0
	}
	return id
}

func (e *Engine) persistResponse(emailID int64, analysis *analyze.Analysis, result *Result, generationMs int64) {
	if e.db == nil || result.Evaluation == nil {
		return
	}

	row := &database.Response{
		Body:               result.Draft,
		Tone:               analysis.SuggestedTone,
		Model:              result.Model,
		OverallScore:       result.Evaluation.OverallScore,
		LengthRatio:        result.Evaluation.LengthRatio,
		QuestionsAnswered:  result.Evaluation.QuestionsAnswered,
		ToneConsistency:    result.Evaluation.ToneConsistency,
		HallucinationScore: result.Evaluation.HallucinationScore,
		FinalState:         string(StateCompleted),
		GenerationMs:       generationMs,
		AutoSent:           result.AutoSent,
	}
	if emailID > 0 {
		row.EmailID = &emailID
	}
	if _, err := e.db.SaveResponse(row); err != nil {
		fmt.Printf("Warning: failed to store response: %v\n", err)
	}
}

func (e *Engine) recordStage(emailID int64, runID, stage, status string, detail map[string]any, elapsed time.Duration) {
	if e.db == nil {
		return
	}

	trace := database.WorkflowTrace{
		RunID:      runID,
		Stage:      stage,
		Status:     status,
		Detail:     detail,
		DurationMs: elapsed.Milliseconds(),
	}
	if emailID > 0 {
		trace.EmailID = &emailID
	}
	if err := e.db.CreateWorkflowTrace(trace); err != nil {
		fmt.Printf("Warning: failed to record workflow trace: %v\n", err)
	}
}

func newRunID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
