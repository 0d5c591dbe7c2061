package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Email is a stored incoming email.
type Email struct {
	ID         int64      `json:"id"`
	MessageID  *string    `json:"message_id,omitempty"`
	Sender     string     `json:"sender"`
	SenderName *string    `json:"sender_name,omitempty"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	Intent     *string    `json:"intent,omitempty"`
	Priority   *string    `json:"priority,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SaveEmail inserts an incoming email and returns its ID. Emails with a
// known Message-ID are upserted so reprocessing never duplicates rows.
func (d *DB) SaveEmail(email *Email) (int64, error) {
	if email.MessageID != nil && *email.MessageID != "" {
		var existing int64
		err := d.QueryRow(`SELECT id FROM emails WHERE message_id = ?`, *email.MessageID).Scan(&existing)
		if err == nil {
			return existing, nil
		}
		if err != sql.ErrNoRows {
			return 0, fmt.Errorf("failed to look up email: %w", err)
		}
	}

	result, err := d.Exec(`
		INSERT INTO emails (message_id, sender, sender_name, subject, body, received_at, intent, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, email.MessageID, email.Sender, email.SenderName, email.Subject, email.Body,
		email.ReceivedAt, email.Intent, email.Priority)
	if err != nil {
		return 0, fmt.Errorf("failed to save email: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get email ID: %w", err)
	}
	return id, nil
}

// UpdateEmailAnalysis records the classified intent and priority for an email.
func (d *DB) UpdateEmailAnalysis(emailID int64, intent, priority string) error {
	_, err := d.Exec(`
		UPDATE emails SET intent = ?, priority = ? WHERE id = ?
	`, intent, priority, emailID)
	if err != nil {
		return fmt.Errorf("failed to update email analysis: %w", err)
	}
	return nil
}

// GetEmail retrieves a stored email by ID.
func (d *DB) GetEmail(id int64) (*Email, error) {
	var email Email
	var messageID, senderName, intent, priority sql.NullString
	var receivedAt sql.NullTime

	err := d.QueryRow(`
		SELECT id, message_id, sender, sender_name, subject, body, received_at, intent, priority, created_at
		FROM emails WHERE id = ?
	`, id).Scan(&email.ID, &messageID, &email.Sender, &senderName, &email.Subject,
		&email.Body, &receivedAt, &intent, &priority, &email.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email: %w", err)
	}

	if messageID.Valid {
		email.MessageID = &messageID.String
	}
	if senderName.Valid {
		email.SenderName = &senderName.String
	}
	if receivedAt.Valid {
		email.ReceivedAt = &receivedAt.Time
	}
	if intent.Valid {
		email.Intent = &intent.String
	}
	if priority.Valid {
		email.Priority = &priority.String
	}

	return &email, nil
}

// ListRecentEmails returns the most recently stored emails, newest first.
func (d *DB) ListRecentEmails(limit int) ([]*Email, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.Query(`
		SELECT id, message_id, sender, sender_name, subject, body, received_at, intent, priority, created_at
		FROM emails ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	defer rows.Close()

	var emails []*Email
	for rows.Next() {
		var email Email
		var messageID, senderName, intent, priority sql.NullString
		var receivedAt sql.NullTime

		if err := rows.Scan(&email.ID, &messageID, &email.Sender, &senderName, &email.Subject,
			&email.Body, &receivedAt, &intent, &priority, &email.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}

		if messageID.Valid {
			email.MessageID = &messageID.String
		}
		if senderName.Valid {
			email.SenderName = &senderName.String
		}
		if receivedAt.Valid {
			email.ReceivedAt = &receivedAt.Time
		}
		if intent.Valid {
			email.Intent = &intent.String
		}
		if priority.Valid {
			email.Priority = &priority.String
		}

		emails = append(emails, &email)
	}

	return emails, rows.Err()
}
