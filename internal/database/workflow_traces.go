package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// WorkflowTrace captures the outcome of a single workflow stage for auditing.
type WorkflowTrace struct {
	ID         int64
	EmailID    *int64
	RunID      string
	Stage      string
	Status     string
	Detail     map[string]any
	DurationMs int64
	CreatedAt  time.Time
}

func (d *DB) CreateWorkflowTrace(trace WorkflowTrace) error {
	detailJSON := "{}"
	if len(trace.Detail) > 0 {
		if b, err := json.Marshal(trace.Detail); err == nil {
			detailJSON = string(b)
		}
	}

	_, err := d.Exec(`
		INSERT INTO workflow_traces (email_id, run_id, stage, status, detail, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, trace.EmailID, trace.RunID, trace.Stage, trace.Status, detailJSON, trace.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to create workflow trace: %w", err)
	}
	return nil
}

// ListTracesForRun returns the stage rows of one workflow run in order.
func (d *DB) ListTracesForRun(runID string) ([]*WorkflowTrace, error) {
	rows, err := d.Query(`
		SELECT id, email_id, run_id, stage, status, detail, duration_ms, created_at
		FROM workflow_traces WHERE run_id = ? ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow traces: %w", err)
	}
	defer rows.Close()

	var traces []*WorkflowTrace
	for rows.Next() {
		var trace WorkflowTrace
		var emailID sql.NullInt64
		var detail sql.NullString

		if err := rows.Scan(&trace.ID, &emailID, &trace.RunID, &trace.Stage, &trace.Status,
			&detail, &trace.DurationMs, &trace.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workflow trace: %w", err)
		}

		if emailID.Valid {
			trace.EmailID = &emailID.Int64
		}
		if detail.Valid && detail.String != "" {
			_ = json.Unmarshal([]byte(detail.String), &trace.Detail)
		}

		traces = append(traces, &trace)
	}

	return traces, rows.Err()
}
