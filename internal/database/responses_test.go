package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndListResponses(t *testing.T) {
	db := NewTestDB(t)

	emailID, err := db.SaveEmail(&Email{
		Sender:  "dave@example.com",
		Subject: "Question about pricing",
		Body:    "What does the enterprise tier cost?",
	})
	require.NoError(t, err)

	respID, err := db.SaveResponse(&Response{
		EmailID:            &emailID,
		Body:               "Thanks for reaching out. The enterprise tier starts at...",
		Tone:               "professional",
		Model:              "claude-sonnet-4-20250514",
		OverallScore:       0.82,
		LengthRatio:        0.9,
		QuestionsAnswered:  1.0,
		ToneConsistency:    0.75,
		HallucinationScore: 0.64,
		FinalState:         "completed",
		GenerationMs:       1200,
	})
	require.NoError(t, err)
	assert.Greater(t, respID, int64(0))

	responses, err := db.ListResponsesForEmail(emailID)
	require.NoError(t, err)
	require.Len(t, responses, 1)

	resp := responses[0]
	assert.Equal(t, "professional", resp.Tone)
	assert.Equal(t, "completed", resp.FinalState)
	assert.InDelta(t, 0.82, resp.OverallScore, 0.001)
	assert.InDelta(t, 1.0, resp.QuestionsAnswered, 0.001)
	assert.Equal(t, int64(1200), resp.GenerationMs)
	assert.False(t, resp.AutoSent)
}

func TestListResponsesOrdering(t *testing.T) {
	db := NewTestDB(t)

	for i := 0; i < 3; i++ {
		_, err := db.SaveResponse(&Response{
			Body:       "reply",
			FinalState: "completed",
		})
		require.NoError(t, err)
	}

	responses, err := db.ListResponses(2)
	require.NoError(t, err)
	assert.Len(t, responses, 2)
}

func TestWorkflowTraces(t *testing.T) {
	db := NewTestDB(t)

	emailID, err := db.SaveEmail(&Email{
		Sender:  "erin@example.com",
		Subject: "Complaint",
		Body:    "The export feature is broken again.",
	})
	require.NoError(t, err)

	stages := []string{"analyzing", "gathering_context", "generating", "reviewing"}
	for _, stage := range stages {
		err := db.CreateWorkflowTrace(WorkflowTrace{
			EmailID:    &emailID,
			RunID:      "run-1",
			Stage:      stage,
			Status:     "ok",
			Detail:     map[string]any{"stage": stage},
			DurationMs: 10,
		})
		require.NoError(t, err)
	}

	traces, err := db.ListTracesForRun("run-1")
	require.NoError(t, err)
	require.Len(t, traces, 4)
	assert.Equal(t, "analyzing", traces[0].Stage)
	assert.Equal(t, "reviewing", traces[3].Stage)
	assert.Equal(t, "gathering_context", traces[1].Detail["stage"])
}

func TestProcessedEmails(t *testing.T) {
	db := NewTestDB(t)

	processed, err := db.IsEmailProcessed("<msg1@example.com>")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, db.MarkEmailProcessed("<msg1@example.com>"))
	// Marking twice must not fail
	require.NoError(t, db.MarkEmailProcessed("<msg1@example.com>"))

	processed, err = db.IsEmailProcessed("<msg1@example.com>")
	require.NoError(t, err)
	assert.True(t, processed)

	removed, err := db.CleanupOldProcessedEmails(-time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestDrafts(t *testing.T) {
	db := NewTestDB(t)

	id, err := db.SaveDraft(&Draft{
		Recipient: "frank@example.com",
		Subject:   "Re: Demo follow-up",
		Body:      "Here are the slides from the demo.",
	})
	require.NoError(t, err)

	draft, err := db.GetDraft(id)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, "frank@example.com", draft.Recipient)

	drafts, err := db.ListDrafts(10)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	require.NoError(t, db.DeleteDraft(id))
	draft, err = db.GetDraft(id)
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestMeetings(t *testing.T) {
	db := NewTestDB(t)

	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	id, err := db.SaveMeeting(&Meeting{
		GoogleEventID: StringPtr("evt-1"),
		Title:         "Intro call with Grace",
		StartTime:     start,
		EndTime:       start.Add(30 * time.Minute),
		Attendees:     []string{"grace@example.com", "me@example.com"},
		MeetLink:      StringPtr("https://meet.google.com/abc-defg-hij"),
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	meetings, err := db.ListUpcomingMeetings(time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, []string{"grace@example.com", "me@example.com"}, meetings[0].Attendees)
	assert.Equal(t, "scheduled", meetings[0].Status)

	require.NoError(t, db.CancelMeeting("evt-1"))
	meetings, err = db.ListUpcomingMeetings(time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, meetings)
}
