package migrations

import (
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 2,
		Name:    "response_metrics",
		Up:      responseMetrics,
	})
}

// Adds per-response evaluation and timing columns that were introduced
// after the initial schema shipped.
func responseMetrics(db *sql.DB) error {
	columns := []struct {
		table, column, def string
	}{
		{"responses", "generation_ms", "INTEGER DEFAULT 0"},
		{"responses", "length_ratio", "REAL"},
		{"responses", "questions_answered", "REAL"},
		{"responses", "tone_consistency", "REAL"},
		{"responses", "hallucination_score", "REAL"},
		{"responses", "auto_sent", "BOOLEAN DEFAULT 0"},
	}

	for _, col := range columns {
		if err := AddColumnIfNotExists(db, col.table, col.column, col.def); err != nil {
			return err
		}
	}

	return nil
}
