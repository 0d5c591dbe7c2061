package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Response is a generated reply with its evaluation scores.
type Response struct {
	ID                 int64     `json:"id"`
	EmailID            *int64    `json:"email_id,omitempty"`
	Body               string    `json:"body"`
	Tone               string    `json:"tone,omitempty"`
	Model              string    `json:"model,omitempty"`
	OverallScore       float64   `json:"overall_score"`
	LengthRatio        float64   `json:"length_ratio"`
	QuestionsAnswered  float64   `json:"questions_answered"`
	ToneConsistency    float64   `json:"tone_consistency"`
	HallucinationScore float64   `json:"hallucination_score"`
	FinalState         string    `json:"final_state"`
	GenerationMs       int64     `json:"generation_ms"`
	AutoSent           bool      `json:"auto_sent"`
	CreatedAt          time.Time `json:"created_at"`
}

// SaveResponse records a generated reply and returns its ID.
func (d *DB) SaveResponse(resp *Response) (int64, error) {
	result, err := d.Exec(`
		INSERT INTO responses (
			email_id, body, tone, model, overall_score, length_ratio,
			questions_answered, tone_consistency, hallucination_score,
			final_state, generation_ms, auto_sent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, resp.EmailID, resp.Body, resp.Tone, resp.Model, resp.OverallScore, resp.LengthRatio,
		resp.QuestionsAnswered, resp.ToneConsistency, resp.HallucinationScore,
		resp.FinalState, resp.GenerationMs, resp.AutoSent)
	if err != nil {
		return 0, fmt.Errorf("failed to save response: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get response ID: %w", err)
	}
	return id, nil
}

// ListResponses returns generated replies, newest first.
func (d *DB) ListResponses(limit int) ([]*Response, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.Query(`
		SELECT id, email_id, body, tone, model, overall_score, length_ratio,
			questions_answered, tone_consistency, hallucination_score,
			final_state, generation_ms, auto_sent, created_at
		FROM responses ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	var responses []*Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	return responses, rows.Err()
}

// ListResponsesForEmail returns the replies generated for one email.
func (d *DB) ListResponsesForEmail(emailID int64) ([]*Response, error) {
	rows, err := d.Query(`
		SELECT id, email_id, body, tone, model, overall_score, length_ratio,
			questions_answered, tone_consistency, hallucination_score,
			final_state, generation_ms, auto_sent, created_at
		FROM responses WHERE email_id = ? ORDER BY created_at DESC
	`, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses for email: %w", err)
	}
	defer rows.Close()

	var responses []*Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	return responses, rows.Err()
}

func scanResponse(rows *sql.Rows) (*Response, error) {
	var resp Response
	var emailID sql.NullInt64
	var tone, model sql.NullString
	var lengthRatio, questionsAnswered, toneConsistency, hallucination sql.NullFloat64

	if err := rows.Scan(&resp.ID, &emailID, &resp.Body, &tone, &model, &resp.OverallScore,
		&lengthRatio, &questionsAnswered, &toneConsistency, &hallucination,
		&resp.FinalState, &resp.GenerationMs, &resp.AutoSent, &resp.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan response: %w", err)
	}

	if emailID.Valid {
		resp.EmailID = &emailID.Int64
	}
	if tone.Valid {
		resp.Tone = tone.String
	}
	if model.Valid {
		resp.Model = model.String
	}
	if lengthRatio.Valid {
		resp.LengthRatio = lengthRatio.Float64
	}
	if questionsAnswered.Valid {
		resp.QuestionsAnswered = questionsAnswered.Float64
	}
	if toneConsistency.Valid {
		resp.ToneConsistency = toneConsistency.Float64
	}
	if hallucination.Valid {
		resp.HallucinationScore = hallucination.Float64
	}

	return &resp, nil
}
