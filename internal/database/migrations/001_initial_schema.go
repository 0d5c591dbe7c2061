package migrations

import (
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 1,
		Name:    "initial_schema",
		Up:      initialSchema,
	})
}

func initialSchema(db *sql.DB) error {
	statements := []string{
		// Incoming emails
		`CREATE TABLE IF NOT EXISTS emails (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT UNIQUE,
			sender TEXT NOT NULL,
			sender_name TEXT,
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			received_at DATETIME,
			intent TEXT,
			priority TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_message_id ON emails(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_sender ON emails(sender)`,

		// Generated responses
		`CREATE TABLE IF NOT EXISTS responses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email_id INTEGER,
			body TEXT NOT NULL,
			tone TEXT,
			model TEXT,
			overall_score REAL,
			final_state TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(email_id) REFERENCES emails(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_email ON responses(email_id)`,

		// Saved drafts
		`CREATE TABLE IF NOT EXISTS drafts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recipient TEXT NOT NULL,
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			email_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(email_id) REFERENCES emails(id) ON DELETE SET NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_recipient ON drafts(recipient)`,

		// Scheduled meetings
		`CREATE TABLE IF NOT EXISTS meetings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			google_event_id TEXT,
			title TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			attendees TEXT,
			meet_link TEXT,
			email_id INTEGER,
			status TEXT NOT NULL DEFAULT 'scheduled' CHECK(status IN ('scheduled', 'cancelled')),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(email_id) REFERENCES emails(id) ON DELETE SET NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_meetings_google_id ON meetings(google_event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_meetings_start ON meetings(start_time)`,

		// Per-stage workflow audit rows
		`CREATE TABLE IF NOT EXISTS workflow_traces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email_id INTEGER,
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			status TEXT NOT NULL,
			detail TEXT,
			duration_ms INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(email_id) REFERENCES emails(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_workflow_traces_run ON workflow_traces(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_workflow_traces_email ON workflow_traces(email_id)`,

		// Inbox dedup by Message-ID
		`CREATE TABLE IF NOT EXISTS processed_emails (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email_id TEXT UNIQUE NOT NULL,
			processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_processed_emails_email_id ON processed_emails(email_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
