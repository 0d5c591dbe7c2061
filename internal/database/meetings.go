package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Meeting is a calendar event the assistant scheduled.
type Meeting struct {
	ID            int64     `json:"id"`
	GoogleEventID *string   `json:"google_event_id,omitempty"`
	Title         string    `json:"title"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Attendees     []string  `json:"attendees,omitempty"`
	MeetLink      *string   `json:"meet_link,omitempty"`
	EmailID       *int64    `json:"email_id,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// SaveMeeting records a scheduled meeting and returns its ID.
func (d *DB) SaveMeeting(m *Meeting) (int64, error) {
	attendees := strings.Join(m.Attendees, ",")

	result, err := d.Exec(`
		INSERT INTO meetings (google_event_id, title, start_time, end_time, attendees, meet_link, email_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.GoogleEventID, m.Title, m.StartTime, m.EndTime, attendees, m.MeetLink, m.EmailID)
	if err != nil {
		return 0, fmt.Errorf("failed to save meeting: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get meeting ID: %w", err)
	}
	return id, nil
}

// CancelMeeting marks a meeting cancelled by its Google event ID.
func (d *DB) CancelMeeting(googleEventID string) error {
	_, err := d.Exec(`
		UPDATE meetings SET status = 'cancelled' WHERE google_event_id = ?
	`, googleEventID)
	if err != nil {
		return fmt.Errorf("failed to cancel meeting: %w", err)
	}
	return nil
}

// ListUpcomingMeetings returns scheduled meetings starting after now.
func (d *DB) ListUpcomingMeetings(now time.Time, limit int) ([]*Meeting, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.Query(`
		SELECT id, google_event_id, title, start_time, end_time, attendees, meet_link, email_id, status, created_at
		FROM meetings
		WHERE status = 'scheduled' AND start_time > ?
		ORDER BY start_time ASC LIMIT ?
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*Meeting
	for rows.Next() {
		var m Meeting
		var googleEventID, attendees, meetLink sql.NullString
		var emailID sql.NullInt64

		if err := rows.Scan(&m.ID, &googleEventID, &m.Title, &m.StartTime, &m.EndTime,
			&attendees, &meetLink, &emailID, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}

		if googleEventID.Valid {
			m.GoogleEventID = &googleEventID.String
		}
		if attendees.Valid && attendees.String != "" {
			m.Attendees = strings.Split(attendees.String, ",")
		}
		if meetLink.Valid {
			m.MeetLink = &meetLink.String
		}
		if emailID.Valid {
			m.EmailID = &emailID.Int64
		}

		meetings = append(meetings, &m)
	}

	return meetings, rows.Err()
}
