package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpilot/internal/mail"
	"mailpilot/internal/workflow"
)

type fakeInbox struct {
	mu     sync.Mutex
	emails []mail.Email
	calls  int
}

func (f *fakeInbox) FetchUnread(_ time.Duration, _ int) ([]mail.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.emails, nil
}

func (f *fakeInbox) IsConfigured() bool { return true }

type fakeEngine struct {
	mu  sync.Mutex
	ran []string
}

func (f *fakeEngine) Run(_ context.Context, email mail.Email) (*workflow.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, email.MessageID)
	return &workflow.Result{State: workflow.StateCompleted}, nil
}

func (f *fakeEngine) processedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ran)
}

type fakeDedup struct {
	mu        sync.Mutex
	processed map[string]bool
	cleanups  int
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{processed: map[string]bool{}}
}

func (f *fakeDedup) IsEmailProcessed(messageID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processed[messageID], nil
}

func (f *fakeDedup) MarkEmailProcessed(messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed[messageID] = true
	return nil
}

func (f *fakeDedup) CleanupOldProcessedEmails(_ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
	return 0, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestWorkerProcessesNewMail(t *testing.T) {
	inbox := &fakeInbox{emails: []mail.Email{
		{MessageID: "<a@x>", From: "a@example.com", Subject: "One"},
		{MessageID: "<b@x>", From: "b@example.com", Subject: "Two"},
	}}
	engine := &fakeEngine{}
	dedup := newFakeDedup()

	w := NewWorker(inbox, engine, dedup, Config{PollInterval: 20 * time.Millisecond, WorkerCount: 2})
	w.initialDelay = time.Millisecond

	require.NoError(t, w.Start())
	defer w.Stop()

	waitFor(t, func() bool { return engine.processedCount() >= 2 })

	processed, err := dedup.IsEmailProcessed("<a@x>")
	require.NoError(t, err)
	assert.True(t, processed)

	// Each poll prunes expired dedup records.
	dedup.mu.Lock()
	defer dedup.mu.Unlock()
	assert.GreaterOrEqual(t, dedup.cleanups, 1)
}

func TestWorkerSkipsProcessedMail(t *testing.T) {
	inbox := &fakeInbox{emails: []mail.Email{
		{MessageID: "<seen@x>", Subject: "Old"},
		{MessageID: "<new@x>", Subject: "New"},
	}}
	engine := &fakeEngine{}
	dedup := newFakeDedup()
	require.NoError(t, dedup.MarkEmailProcessed("<seen@x>"))

	w := NewWorker(inbox, engine, dedup, Config{PollInterval: time.Hour})
	w.initialDelay = time.Millisecond

	require.NoError(t, w.Start())
	defer w.Stop()

	waitFor(t, func() bool { return engine.processedCount() >= 1 })

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Equal(t, []string{"<new@x>"}, engine.ran)
}

func TestWorkerDeduplicatesAcrossPolls(t *testing.T) {
	inbox := &fakeInbox{emails: []mail.Email{{MessageID: "<same@x>", Subject: "Repeat"}}}
	engine := &fakeEngine{}
	dedup := newFakeDedup()

	w := NewWorker(inbox, engine, dedup, Config{PollInterval: 10 * time.Millisecond})
	w.initialDelay = time.Millisecond

	require.NoError(t, w.Start())

	// Let several polls happen.
	waitFor(t, func() bool {
		inbox.mu.Lock()
		defer inbox.mu.Unlock()
		return inbox.calls >= 3
	})
	w.Stop()

	assert.Equal(t, 1, engine.processedCount())
}

func TestWorkerRequiresConfiguredInbox(t *testing.T) {
	w := NewWorker(nil, &fakeEngine{}, newFakeDedup(), Config{})
	assert.Error(t, w.Start())
}

func TestWorkerStopIsClean(t *testing.T) {
	inbox := &fakeInbox{}
	w := NewWorker(inbox, &fakeEngine{}, newFakeDedup(), Config{PollInterval: time.Hour})
	w.initialDelay = time.Millisecond

	require.NoError(t, w.Start())
	w.Stop()
}

func TestConfigDefaults(t *testing.T) {
	w := NewWorker(&fakeInbox{}, &fakeEngine{}, newFakeDedup(), Config{})
	assert.Equal(t, defaultPollInterval, w.pollInterval)
	assert.Equal(t, defaultMaxEmails, w.maxEmails)
	assert.Equal(t, defaultWorkerCount, w.workerCount)
}
