// Package server exposes the HTTP API over the workflow engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mailpilot/internal/analyze"
	"mailpilot/internal/database"
	"mailpilot/internal/gcal"
	"mailpilot/internal/mailbox"
	"mailpilot/internal/mailer"
	"mailpilot/internal/search"
	"mailpilot/internal/workflow"
)

type Server struct {
	db         *database.DB
	engine     *workflow.Engine
	analyzer   analyze.Analyzer
	drafter    workflow.Drafter
	fallback   workflow.FallbackDrafter
	sender     mailer.Sender
	gcalClient *gcal.Client
	mailboxRdr *mailbox.Reader
	searchSvc  *search.Service
	calendarID string
	httpSrv    *http.Server
	port       int
}

// Config holds the server's collaborators. Optional pieces may be nil;
// their endpoints report unavailability.
type Config struct {
	DB         *database.DB
	Engine     *workflow.Engine
	Analyzer   analyze.Analyzer
	Drafter    workflow.Drafter
	Fallback   workflow.FallbackDrafter
	Sender     mailer.Sender
	GCalClient *gcal.Client
	Mailbox    *mailbox.Reader
	Search     *search.Service
	CalendarID string
	Port       int
}

func New(cfg Config) *Server {
	s := &Server{
		db:         cfg.DB,
		engine:     cfg.Engine,
		analyzer:   cfg.Analyzer,
		drafter:    cfg.Drafter,
		fallback:   cfg.Fallback,
		sender:     cfg.Sender,
		gcalClient: cfg.GCalClient,
		mailboxRdr: cfg.Mailbox,
		searchSvc:  cfg.Search,
		calendarID: cfg.CalendarID,
		port:       cfg.Port,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.corsMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // workflow runs can take a while
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", s.handleHealthCheck)

	// Email API
	mux.HandleFunc("POST /api/email/process", s.handleProcessEmail)
	mux.HandleFunc("POST /api/email/draft", s.handleDraftEmail)
	mux.HandleFunc("POST /api/email/send", s.handleSendEmail)
	mux.HandleFunc("GET /api/email/unread", s.handleListUnread)
	mux.HandleFunc("GET /api/emails/{id}", s.handleGetEmail)

	// Calendar API
	mux.HandleFunc("GET /api/calendar/status", s.handleCalendarStatus)
	mux.HandleFunc("POST /api/calendar/connect", s.handleCalendarConnect)
	mux.HandleFunc("GET /oauth/callback", s.handleOAuthCallback)
	mux.HandleFunc("GET /api/calendar/availability", s.handleAvailability)
	mux.HandleFunc("POST /api/calendar/meetings", s.handleScheduleMeeting)
	mux.HandleFunc("GET /api/calendar/meetings", s.handleListMeetings)
	mux.HandleFunc("DELETE /api/calendar/meetings/{id}", s.handleCancelMeeting)

	// Stored results API
	mux.HandleFunc("GET /api/drafts", s.handleListDrafts)
	mux.HandleFunc("DELETE /api/drafts/{id}", s.handleDeleteDraft)
	mux.HandleFunc("GET /api/responses", s.handleListResponses)

	// Evaluation API
	mux.HandleFunc("POST /api/eval", s.handleEvaluate)

	// Search API
	mux.HandleFunc("GET /api/search/status", s.handleSearchStatus)
}

func (s *Server) Start() error {
	fmt.Printf("Starting HTTP server on http://localhost:%d\n", s.port)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the server's HTTP handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// corsMiddleware adds CORS headers so browser dashboards can call the API
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
