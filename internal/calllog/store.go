// Package calllog persists per-call session records to PostgreSQL for
// long-term reporting, separate from the live Redis session state.
package calllog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/premierdental/nova-voice-ai/internal/qualification"
)

// Call status values recorded per call session.
const (
	StatusInitiated  = "initiated"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusEscalated  = "escalated"
)

// CallRecord is one outbound qualification call.
type CallRecord struct {
	SessionID            uuid.UUID
	LeadID               string
	CallSID              string
	Status               string
	EscalationReason     string
	AppointmentScheduled bool
	Qualification        *qualification.QualificationData
	StartedAt            time.Time
	EndedAt              *time.Time
}

// Store persists call records. A nil Store is a no-op so the service
// runs without a relational database in development.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// Create inserts a new call record in the initiated state and returns
// its session ID.
func (s *Store) Create(ctx context.Context, leadID, callSID string) (uuid.UUID, error) {
	if s == nil || s.db == nil {
		return uuid.Nil, nil
	}

	sessionID := uuid.New()
	query := `
		INSERT INTO call_sessions (session_id, lead_id, call_sid, status)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, sessionID, leadID, callSID, StatusInitiated); err != nil {
		return uuid.Nil, fmt.Errorf("calllog: insert failed: %w", err)
	}
	return sessionID, nil
}

// UpdateStatus moves the call identified by its provider SID to status.
func (s *Store) UpdateStatus(ctx context.Context, callSID, status string) error {
	if s == nil || s.db == nil {
		return nil
	}

	query := `
		UPDATE call_sessions
		SET status = $2, updated_at = now()
		WHERE call_sid = $1
	`
	if _, err := s.db.ExecContext(ctx, query, callSID, status); err != nil {
		return fmt.Errorf("calllog: status update failed: %w", err)
	}
	return nil
}

// Finish closes out a call with its final status and captured data.
func (s *Store) Finish(ctx context.Context, callSID, status, escalationReason string, scheduled bool, data *qualification.QualificationData) error {
	if s == nil || s.db == nil {
		return nil
	}

	var payload any
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("calllog: marshal qualification data: %w", err)
		}
		payload = b
	}

	query := `
		UPDATE call_sessions
		SET status = $2,
			escalation_reason = NULLIF($3, ''),
			appointment_scheduled = $4,
			qualification_data = $5,
			ended_at = now(),
			updated_at = now()
		WHERE call_sid = $1
	`
	if _, err := s.db.ExecContext(ctx, query, callSID, status, escalationReason, scheduled, payload); err != nil {
		return fmt.Errorf("calllog: finish failed: %w", err)
	}
	return nil
}

// GetByCallSID loads one call record.
func (s *Store) GetByCallSID(ctx context.Context, callSID string) (*CallRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	query := `
		SELECT session_id, lead_id, call_sid, status,
			COALESCE(escalation_reason, ''), appointment_scheduled,
			qualification_data, started_at, ended_at
		FROM call_sessions
		WHERE call_sid = $1
	`
	row := s.db.QueryRowContext(ctx, query, callSID)

	var record CallRecord
	var payload []byte
	var endedAt sql.NullTime
	if err := row.Scan(
		&record.SessionID,
		&record.LeadID,
		&record.CallSID,
		&record.Status,
		&record.EscalationReason,
		&record.AppointmentScheduled,
		&payload,
		&record.StartedAt,
		&endedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("calllog: select failed: %w", err)
	}
	if endedAt.Valid {
		record.EndedAt = &endedAt.Time
	}
	if len(payload) > 0 {
		var data qualification.QualificationData
		if err := json.Unmarshal(payload, &data); err != nil {
			return nil, fmt.Errorf("calllog: decode qualification data: %w", err)
		}
		record.Qualification = &data
	}
	return &record, nil
}
