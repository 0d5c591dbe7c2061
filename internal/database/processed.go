package database

import (
	"fmt"
	"time"
)

// IsEmailProcessed checks if an inbox email has already been run through the workflow.
func (d *DB) IsEmailProcessed(emailID string) (bool, error) {
	var count int
	err := d.QueryRow(`
		SELECT COUNT(*) FROM processed_emails WHERE email_id = ?
	`, emailID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check processed email: %w", err)
	}
	return count > 0, nil
}

// MarkEmailProcessed marks an inbox email as processed.
func (d *DB) MarkEmailProcessed(emailID string) error {
	_, err := d.Exec(`
		INSERT OR IGNORE INTO processed_emails (email_id) VALUES (?)
	`, emailID)
	if err != nil {
		return fmt.Errorf("failed to mark email processed: %w", err)
	}
	return nil
}

// CleanupOldProcessedEmails removes dedup records older than the specified duration.
func (d *DB) CleanupOldProcessedEmails(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := d.Exec(`
		DELETE FROM processed_emails WHERE processed_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup processed emails: %w", err)
	}
	return result.RowsAffected()
}
