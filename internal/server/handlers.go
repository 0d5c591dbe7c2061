package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mailpilot/internal/database"
	"mailpilot/internal/gcal"
	"mailpilot/internal/mail"
	"mailpilot/internal/mailbox"
	"mailpilot/internal/mailer"
	"mailpilot/internal/review"
	"mailpilot/internal/timeutil"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("Error encoding JSON response: %v\n", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// normalizeSender splits a combined "Name <addr>" From value that API
// callers often paste straight from a mail client.
func normalizeSender(email *mail.Email) {
	if !strings.Contains(email.From, "<") {
		return
	}
	if email.FromName == "" {
		email.FromName = mailbox.ExtractSenderName(email.From)
	}
	email.From = mailbox.ExtractSenderEmail(email.From)
}

func limitParam(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// Health Check

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	status := map[string]interface{}{
		"status":   "healthy",
		"calendar": "disconnected",
		"mailbox":  "not configured",
		"sender":   "none",
		"search":   "not configured",
	}

	if s.gcalClient != nil && s.gcalClient.IsAuthenticated() {
		status["calendar"] = "connected"
	}
	if s.mailboxRdr != nil && s.mailboxRdr.IsConfigured() {
		status["mailbox"] = "configured"
	}
	if s.sender != nil && s.sender.IsConfigured() {
		status["sender"] = s.sender.Name()
	}
	if s.searchSvc != nil && s.searchSvc.IsConfigured() {
		status["search"] = strings.Join(s.searchSvc.ConfiguredEngines(), ",")
	}

	respondJSON(w, http.StatusOK, status)
}

// Email API

func (s *Server) handleProcessEmail(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		respondError(w, http.StatusServiceUnavailable, "workflow engine not available")
		return
	}

	var email mail.Email
	if err := json.NewDecoder(r.Body).Decode(&email); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if email.From == "" || email.Body == "" {
		respondError(w, http.StatusBadRequest, "from and body are required")
		return
	}
	normalizeSender(&email)

	result, err := s.engine.Run(r.Context(), email)
	if err != nil {
		// The result still carries the failure state and trace info.
		respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDraftEmail(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		respondError(w, http.StatusServiceUnavailable, "analyzer not available")
		return
	}

	var email mail.Email
	if err := json.NewDecoder(r.Body).Decode(&email); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if email.From == "" || email.Body == "" {
		respondError(w, http.StatusBadRequest, "from and body are required")
		return
	}
	normalizeSender(&email)

	analysis, err := s.analyzer.AnalyzeEmail(r.Context(), email)
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	var draft string
	model := "template"
	if s.drafter != nil && s.drafter.IsConfigured() {
		draft, err = s.drafter.DraftReply(r.Context(), email, "", analysis.SuggestedTone)
		if err == nil {
			model = s.drafter.Model()
		}
	}
	if draft == "" {
		if s.fallback == nil {
			respondError(w, http.StatusServiceUnavailable, "no drafter available")
			return
		}
		draft, err = s.fallback.DraftFor(r.Context(), email, analysis)
		if err != nil {
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("draft failed: %v", err))
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis": analysis,
		"draft":    draft,
		"subject":  email.ReplySubject(),
		"tone":     analysis.SuggestedTone,
		"model":    model,
	})
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	if s.sender == nil || !s.sender.IsConfigured() {
		respondError(w, http.StatusServiceUnavailable, "no mail sender configured")
		return
	}

	var req struct {
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		Body    string   `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg := &mailer.Message{To: req.To, Subject: req.Subject, Body: req.Body}
	if err := s.sender.Send(r.Context(), msg); err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("send failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sent":   true,
		"sender": s.sender.Name(),
	})
}

func (s *Server) handleListUnread(w http.ResponseWriter, r *http.Request) {
	if s.mailboxRdr == nil || !s.mailboxRdr.IsConfigured() {
		respondError(w, http.StatusServiceUnavailable, "mailbox not configured")
		return
	}

	limit := limitParam(r, 10)
	emails, err := s.mailboxRdr.FetchUnread(24*time.Hour, limit)
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("fetch failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(emails),
		"emails": emails,
	})
}

// Calendar API

func (s *Server) handleCalendarStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"connected": false}
	if s.gcalClient != nil {
		status["connected"] = s.gcalClient.IsAuthenticated()
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleCalendarConnect(w http.ResponseWriter, r *http.Request) {
	if s.gcalClient == nil {
		respondError(w, http.StatusServiceUnavailable, "calendar client not initialized")
		return
	}
	if s.gcalClient.IsAuthenticated() {
		respondJSON(w, http.StatusOK, map[string]interface{}{"connected": true})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connected": false,
		"auth_url":  s.gcalClient.GetAuthURL(),
	})
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.gcalClient == nil {
		respondError(w, http.StatusServiceUnavailable, "calendar client not initialized")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	if err := s.gcalClient.ExchangeCode(r.Context(), code); err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("code exchange failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"connected": true})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if s.gcalClient == nil || !s.gcalClient.IsAuthenticated() {
		respondError(w, http.StatusServiceUnavailable, "calendar not connected")
		return
	}

	timezone := r.URL.Query().Get("timezone")

	from := time.Now()
	to := from.Add(48 * time.Hour)
	if raw := r.URL.Query().Get("date"); raw != "" {
		start, end, err := timeutil.DayWindow(raw, timezone)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		from, to = start, end
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, _, err := timeutil.ParseDateTime(raw, timezone)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from time")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, _, err := timeutil.ParseDateTime(raw, timezone)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid to time")
			return
		}
		to = parsed
	}

	slots, err := s.gcalClient.CheckAvailability(s.calendarID, from, to)
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("availability check failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":  from,
		"to":    to,
		"slots": slots,
	})
}

func (s *Server) handleScheduleMeeting(w http.ResponseWriter, r *http.Request) {
	if s.gcalClient == nil || !s.gcalClient.IsAuthenticated() {
		respondError(w, http.StatusServiceUnavailable, "calendar not connected")
		return
	}

	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		StartTime   string   `json:"start_time"`
		EndTime     string   `json:"end_time"`
		Timezone    string   `json:"timezone"`
		Attendees   []string `json:"attendees"`
		WithMeet    bool     `json:"with_meet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, _, err := timeutil.ParseDateTime(req.StartTime, req.Timezone)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid start_time")
		return
	}
	end, _, err := timeutil.ParseDateTime(req.EndTime, req.Timezone)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid end_time")
		return
	}

	meeting, err := s.gcalClient.ScheduleMeeting(s.calendarID, gcal.MeetingInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   start,
		EndTime:     end,
		Attendees:   req.Attendees,
		WithMeet:    req.WithMeet,
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("scheduling failed: %v", err))
		return
	}

	if s.db != nil {
		row := &database.Meeting{
			GoogleEventID: &meeting.EventID,
			Title:         meeting.Title,
			StartTime:     meeting.StartTime,
			EndTime:       meeting.EndTime,
			Attendees:     meeting.Attendees,
			Status:        "scheduled",
		}
		if meeting.MeetLink != "" {
			row.MeetLink = &meeting.MeetLink
		}
		if _, err := s.db.SaveMeeting(row); err != nil {
			fmt.Printf("Warning: failed to store meeting: %v\n", err)
		}
	}

	respondJSON(w, http.StatusCreated, meeting)
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	if s.gcalClient == nil || !s.gcalClient.IsAuthenticated() {
		respondError(w, http.StatusServiceUnavailable, "calendar not connected")
		return
	}

	window := 7 * 24 * time.Hour
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			window = time.Duration(n) * 24 * time.Hour
		}
	}

	meetings, err := s.gcalClient.ListUpcomingMeetings(s.calendarID, window, limitParam(r, 10))
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("listing failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"meetings": meetings})
}

func (s *Server) handleCancelMeeting(w http.ResponseWriter, r *http.Request) {
	if s.gcalClient == nil || !s.gcalClient.IsAuthenticated() {
		respondError(w, http.StatusServiceUnavailable, "calendar not connected")
		return
	}

	eventID := r.PathValue("id")
	if err := s.gcalClient.CancelMeeting(s.calendarID, eventID); err != nil {
		if gcal.IsEventNotFound(err) {
			respondError(w, http.StatusNotFound, "meeting not found")
			return
		}
		respondError(w, http.StatusBadGateway, fmt.Sprintf("cancellation failed: %v", err))
		return
	}

	if s.db != nil {
		if err := s.db.CancelMeeting(eventID); err != nil {
			fmt.Printf("Warning: failed to update meeting status: %v\n", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"cancelled": true})
}

// Stored results API

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.db.ListDrafts(limitParam(r, 20))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list drafts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"drafts": drafts})
}

func (s *Server) handleGetEmail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	email, err := s.db.GetEmail(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get email")
		return
	}
	if email == nil {
		respondError(w, http.StatusNotFound, "email not found")
		return
	}

	responses, err := s.db.ListResponsesForEmail(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list responses")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"email":     email,
		"responses": responses,
	})
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid draft id")
		return
	}

	draft, err := s.db.GetDraft(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get draft")
		return
	}
	if draft == nil {
		respondError(w, http.StatusNotFound, "draft not found")
		return
	}

	if err := s.db.DeleteDraft(id); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete draft")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

func (s *Server) handleListResponses(w http.ResponseWriter, r *http.Request) {
	responses, err := s.db.ListResponses(limitParam(r, 20))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list responses")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"responses": responses})
}

// Evaluation API

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmailBody string `json:"email_body"`
		Response  string `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Response == "" {
		respondError(w, http.StatusBadRequest, "response is required")
		return
	}

	respondJSON(w, http.StatusOK, review.Evaluate(req.EmailBody, req.Response))
}

// Search API

func (s *Server) handleSearchStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"configured": false,
		"engines":    []string{},
	}
	if s.searchSvc != nil && s.searchSvc.IsConfigured() {
		status["configured"] = true
		status["engines"] = s.searchSvc.ConfiguredEngines()
	}
	respondJSON(w, http.StatusOK, status)
}
