package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Draft is a saved outgoing email that has not been sent.
type Draft struct {
	ID        int64     `json:"id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	EmailID   *int64    `json:"email_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveDraft stores a draft and returns its ID.
func (d *DB) SaveDraft(draft *Draft) (int64, error) {
	result, err := d.Exec(`
		INSERT INTO drafts (recipient, subject, body, email_id)
		VALUES (?, ?, ?, ?)
	`, draft.Recipient, draft.Subject, draft.Body, draft.EmailID)
	if err != nil {
		return 0, fmt.Errorf("failed to save draft: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get draft ID: %w", err)
	}
	return id, nil
}

// GetDraft retrieves a draft by ID, or nil when it does not exist.
func (d *DB) GetDraft(id int64) (*Draft, error) {
	var draft Draft
	var emailID sql.NullInt64

	err := d.QueryRow(`
		SELECT id, recipient, subject, body, email_id, created_at
		FROM drafts WHERE id = ?
	`, id).Scan(&draft.ID, &draft.Recipient, &draft.Subject, &draft.Body, &emailID, &draft.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	if emailID.Valid {
		draft.EmailID = &emailID.Int64
	}
	return &draft, nil
}

// ListDrafts returns saved drafts, newest first.
func (d *DB) ListDrafts(limit int) ([]*Draft, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.Query(`
		SELECT id, recipient, subject, body, email_id, created_at
		FROM drafts ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*Draft
	for rows.Next() {
		var draft Draft
		var emailID sql.NullInt64
		if err := rows.Scan(&draft.ID, &draft.Recipient, &draft.Subject, &draft.Body,
			&emailID, &draft.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		if emailID.Valid {
			draft.EmailID = &emailID.Int64
		}
		drafts = append(drafts, &draft)
	}

	return drafts, rows.Err()
}

// DeleteDraft removes a draft after it has been sent or discarded.
func (d *DB) DeleteDraft(id int64) error {
	_, err := d.Exec(`DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
