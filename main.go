package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailpilot/internal/analyze"
	"mailpilot/internal/claude"
	"mailpilot/internal/config"
	"mailpilot/internal/database"
	"mailpilot/internal/gcal"
	"mailpilot/internal/knowledge"
	"mailpilot/internal/mailbox"
	"mailpilot/internal/mailer"
	"mailpilot/internal/processor"
	"mailpilot/internal/search"
	"mailpilot/internal/server"
	"mailpilot/internal/workflow"
)

func main() {
	cfg := config.LoadFromEnv()

	// Phase 1: Core infrastructure
	db, err := database.New(cfg.DBPath)
	if err != nil {
		fatal("creating database", err)
	}
	defer db.Close()

	// Phase 2: Collaborators
	sender := initSender(cfg)
	gcalClient := initCalendar(cfg)
	mailboxReader := initMailbox(cfg)
	searchSvc := initSearch(cfg)
	knowledgeStore := initKnowledge(cfg)
	claudeClient := initClaude(cfg)
	analyzer, drafter := pickBrains(claudeClient)
	fallback := claude.NewTemplateDrafter()

	// Phase 3: Workflow engine
	engineCfg := workflow.Config{
		DB:         db,
		Analyzer:   analyzer,
		Fallback:   fallback,
		Sender:     sender,
		CalendarID: cfg.CalendarID,
		AutoSend:   cfg.AutoSendReplies,
	}
	if drafter != nil {
		engineCfg.Drafter = drafter
	}
	if searchSvc != nil {
		engineCfg.Search = searchSvc
	}
	if knowledgeStore != nil {
		engineCfg.Knowledge = knowledgeStore
	}
	if gcalClient != nil {
		engineCfg.Calendar = gcalClient
	}
	if mailboxReader != nil {
		engineCfg.Inbox = mailboxReader
	}
	engine := workflow.NewEngine(engineCfg)

	// Phase 4: HTTP API
	srv := server.New(server.Config{
		DB:         db,
		Engine:     engine,
		Analyzer:   analyzer,
		Drafter:    engineCfg.Drafter,
		Fallback:   fallback,
		Sender:     sender,
		GCalClient: gcalClient,
		Mailbox:    mailboxReader,
		Search:     searchSvc,
		CalendarID: cfg.CalendarID,
		Port:       cfg.HTTPPort,
	})
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "HTTP server error: %v\n", err)
		}
	}()

	// Phase 5: Background inbox worker
	var inboxWorker *processor.Worker
	if mailboxReader != nil && mailboxReader.IsConfigured() {
		inboxWorker = processor.NewWorker(mailboxReader, engine, db, processor.Config{
			PollInterval: time.Duration(cfg.PollIntervalSec) * time.Second,
			MaxEmails:    cfg.MaxEmailsPoll,
			WorkerCount:  cfg.WorkerCount,
		})
		if err := inboxWorker.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: inbox worker failed to start: %v\n", err)
			inboxWorker = nil
		}
	} else {
		fmt.Println("Inbox worker: IMAP not configured, skipping background polling")
	}

	waitForShutdown(srv, inboxWorker)
}

func initSender(cfg *config.Config) mailer.Sender {
	smtpSender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromAddress, cfg.FromName)
	resendSender := mailer.NewResendSender(cfg.ResendAPIKey, cfg.FromAddress, cfg.FromName)

	sender := mailer.Pick(smtpSender, resendSender)
	if sender == nil {
		fmt.Println("Warning: no mail sender configured, replies will only be drafted")
		return nil
	}
	fmt.Printf("Mail sender configured (%s)\n", sender.Name())
	return sender
}

func initCalendar(cfg *config.Config) *gcal.Client {
	client, err := gcal.NewClient(cfg.GoogleCredentialsFile, cfg.GoogleTokenFile)
	if err != nil {
		fmt.Printf("Google Calendar: not configured (%v)\n", err)
		return nil
	}
	if client.IsAuthenticated() {
		fmt.Println("Google Calendar client initialized")
	} else {
		fmt.Println("Google Calendar: awaiting OAuth (POST /api/calendar/connect)")
	}
	return client
}

func initMailbox(cfg *config.Config) *mailbox.Reader {
	reader := mailbox.NewReader(mailbox.Config{
		Server:   cfg.IMAPServer,
		Username: cfg.IMAPUsername,
		Password: cfg.IMAPPassword,
		Folder:   cfg.IMAPFolder,
	})
	if !reader.IsConfigured() {
		fmt.Println("IMAP mailbox: not configured")
		return nil
	}
	fmt.Printf("IMAP mailbox configured (%s)\n", cfg.IMAPServer)
	return reader
}

func initSearch(cfg *config.Config) *search.Service {
	svc := search.NewService(search.Config{
		SerperAPIKey: cfg.SerperAPIKey,
		TavilyAPIKey: cfg.TavilyAPIKey,
		GoogleCSEKey: cfg.GoogleCSEKey,
		GoogleCSEID:  cfg.GoogleCSEID,
		BingAPIKey:   cfg.BingAPIKey,
		MaxResults:   cfg.MaxSearchHits,
		Timeout:      time.Duration(cfg.SearchTimeout) * time.Second,
	})
	if !svc.IsConfigured() {
		fmt.Println("Web search: no engines configured")
		return nil
	}
	fmt.Printf("Web search configured (%v)\n", svc.ConfiguredEngines())
	return svc
}

func initKnowledge(cfg *config.Config) *knowledge.Store {
	store, err := knowledge.NewStore(cfg.KnowledgeDir)
	if err != nil {
		fmt.Printf("Knowledge base: not available (%v)\n", err)
		return nil
	}
	if !store.IsConfigured() {
		fmt.Printf("Knowledge base: directory %s not found\n", cfg.KnowledgeDir)
		return nil
	}
	fmt.Printf("Knowledge base configured (%s)\n", cfg.KnowledgeDir)
	return store
}

func initClaude(cfg *config.Config) *claude.Client {
	if cfg.AnthropicAPIKey == "" {
		fmt.Println("Warning: ANTHROPIC_API_KEY not set, using keyword analysis and template replies")
		return nil
	}
	client := claude.NewClient(cfg.AnthropicAPIKey, cfg.ClaudeModel, cfg.ClaudeTemperature)
	fmt.Printf("Claude client configured (%s)\n", cfg.ClaudeModel)
	return client
}

// pickBrains chooses the analyzer and drafter: Claude when configured,
// keyword analysis otherwise. The drafter is nil without Claude; the
// engine falls back to templates.
func pickBrains(client *claude.Client) (analyze.Analyzer, workflow.Drafter) {
	if client != nil && client.IsConfigured() {
		return client, client
	}
	return analyze.NewKeywordAnalyzer(), nil
}

func fatal(context string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", context, err)
	os.Exit(1)
}

func waitForShutdown(srv *server.Server, inboxWorker *processor.Worker) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	fmt.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if inboxWorker != nil {
		inboxWorker.Stop()
	}
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "HTTP shutdown error: %v\n", err)
	}
}
