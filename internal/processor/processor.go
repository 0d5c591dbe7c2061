// Package processor runs the background inbox worker: it polls the
// mailbox, skips already-processed messages and feeds new mail through
// the workflow engine on a small worker pool.
package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mailpilot/internal/mail"
	"mailpilot/internal/mailbox"
	"mailpilot/internal/workflow"
)

const (
	defaultPollInterval = 5 * time.Minute
	defaultMaxEmails    = 10
	defaultWorkerCount  = 2

	// Initial delay before the first poll so startup settles first.
	initialPollDelay = 30 * time.Second

	// How far back a poll looks. Overlapping polls are fine because
	// processed Message-IDs are skipped.
	pollLookback = 24 * time.Hour

	// Per-email processing budget.
	runTimeout = 2 * time.Minute

	// Dedup records older than this are pruned on each poll; unread mail
	// never looks back more than pollLookback, so 30 days is plenty.
	dedupRetention = 30 * 24 * time.Hour

	logSubjectLen = 80
)

// InboxReader fetches unread mail.
type InboxReader interface {
	FetchUnread(since time.Duration, limit int) ([]mail.Email, error)
	IsConfigured() bool
}

// Engine runs one email through the workflow.
type Engine interface {
	Run(ctx context.Context, email mail.Email) (*workflow.Result, error)
}

// DBInterface defines the database operations the worker needs.
type DBInterface interface {
	IsEmailProcessed(messageID string) (bool, error)
	MarkEmailProcessed(messageID string) error
	CleanupOldProcessedEmails(olderThan time.Duration) (int64, error)
}

// Config contains worker tuning.
type Config struct {
	PollInterval time.Duration
	MaxEmails    int
	WorkerCount  int
}

// Worker polls the inbox and dispatches new mail to the workflow engine.
type Worker struct {
	inbox  InboxReader
	engine Engine
	db     DBInterface

	pollInterval time.Duration
	maxEmails    int
	workerCount  int
	initialDelay time.Duration

	jobs   chan mail.Email
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates an inbox worker.
func NewWorker(inbox InboxReader, engine Engine, db DBInterface, cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxEmails <= 0 {
		cfg.MaxEmails = defaultMaxEmails
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		inbox:        inbox,
		engine:       engine,
		db:           db,
		pollInterval: cfg.PollInterval,
		maxEmails:    cfg.MaxEmails,
		workerCount:  cfg.WorkerCount,
		initialDelay: initialPollDelay,
		jobs:         make(chan mail.Email, cfg.MaxEmails),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins the polling loop and the processing pool.
func (w *Worker) Start() error {
	if w.inbox == nil || !w.inbox.IsConfigured() {
		return fmt.Errorf("inbox worker: mailbox not configured")
	}

	fmt.Printf("Inbox worker: starting with %v poll interval, %d workers\n", w.pollInterval, w.workerCount)

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.processLoop()
	}

	w.wg.Add(1)
	go w.pollLoop()

	return nil
}

// Stop gracefully shuts down the worker.
func (w *Worker) Stop() {
	fmt.Println("Inbox worker: stopping...")
	w.cancel()
	w.wg.Wait()
	fmt.Println("Inbox worker: stopped")
}

// pollLoop runs the polling cycle.
func (w *Worker) pollLoop() {
	defer w.wg.Done()
	defer close(w.jobs)

	// Do an initial poll after a short delay
	select {
	case <-w.ctx.Done():
		return
	case <-time.After(w.initialDelay):
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.poll()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll fetches unread mail and queues anything not yet processed.
func (w *Worker) poll() {
	if n, err := w.db.CleanupOldProcessedEmails(dedupRetention); err != nil {
		fmt.Printf("Inbox worker: dedup cleanup failed: %v\n", err)
	} else if n > 0 {
		fmt.Printf("Inbox worker: pruned %d old dedup records\n", n)
	}

	emails, err := w.inbox.FetchUnread(pollLookback, w.maxEmails)
	if err != nil {
		fmt.Printf("Inbox worker: fetch failed: %v\n", err)
		return
	}

	for _, email := range emails {
		if email.MessageID != "" {
			processed, err := w.db.IsEmailProcessed(email.MessageID)
			if err != nil {
				fmt.Printf("Inbox worker: dedup check failed: %v\n", err)
				continue
			}
			if processed {
				continue
			}
		}

		select {
		case <-w.ctx.Done():
			return
		case w.jobs <- email:
		}
	}
}

// processLoop drains the job channel through the workflow engine.
func (w *Worker) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case email, ok := <-w.jobs:
			if !ok {
				return
			}
			w.process(email)
		}
	}
}

func (w *Worker) process(email mail.Email) {
	subject := mailbox.TruncateText(email.Subject, logSubjectLen)
	fmt.Printf("Inbox worker: processing %q from %s\n", subject, email.From)

	ctx, cancel := context.WithTimeout(w.ctx, runTimeout)
	defer cancel()

	result, err := w.engine.Run(ctx, email)
	if err != nil {
		fmt.Printf("Inbox worker: workflow failed for %q: %v\n", subject, err)
	} else {
		fmt.Printf("Inbox worker: %q done in %dms (state %s)\n", subject, result.ProcessingMs, result.State)
	}

	// Mark processed even on failure so a poison message doesn't loop.
	if email.MessageID != "" {
		if err := w.db.MarkEmailProcessed(email.MessageID); err != nil {
			fmt.Printf("Inbox worker: failed to mark processed: %v\n", err)
		}
	}
}
