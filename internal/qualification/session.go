package qualification

import (
	"context"
	"time"
)

// SessionState is the lifecycle state of a qualification call.
type SessionState string

const (
	StateNew       SessionState = "new"
	StateActive    SessionState = "active"
	StateEscalated SessionState = "escalated"
	StateComplete  SessionState = "complete"
)

// Terminal reports whether no further turns should mutate the session.
func (s SessionState) Terminal() bool {
	return s == StateEscalated || s == StateComplete
}

// Session is the full per-lead conversation state.
type Session struct {
	LeadID    string             `json:"lead_id"`
	State     SessionState       `json:"state"`
	Turns     []ConversationTurn `json:"turns"`
	Data      QualificationData  `json:"qualification_data"`
	TurnCount int                `json:"turn_count"`

	// Terminal details, kept so a replayed turn can re-return the
	// same outcome without re-running the pipeline.
	EscalationReason     string `json:"escalation_reason,omitempty"`
	AppointmentScheduled bool   `json:"appointment_scheduled,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session for a lead.
func NewSession(leadID string) *Session {
	now := time.Now().UTC()
	return &Session{
		LeadID:    leadID,
		State:     StateNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendTurn adds an utterance to the transcript. Only user turns
// advance the turn counter.
func (s *Session) AppendTurn(speaker Speaker, message string, confidence float64) {
	s.Turns = append(s.Turns, ConversationTurn{
		Timestamp:  time.Now().UTC(),
		Speaker:    speaker,
		Message:    message,
		Confidence: confidence,
	})
	if speaker == SpeakerUser {
		s.TurnCount++
	}
	s.UpdatedAt = time.Now().UTC()
}

// Summary exports the session in its reporting form.
func (s *Session) Summary() Summary {
	return Summary{
		LeadID:             s.LeadID,
		State:              s.State,
		QualificationData:  s.Data.Clone(),
		TurnCount:          s.TurnCount,
		ConversationLength: len(s.Turns),
	}
}

// SessionStore persists sessions keyed by lead ID.
type SessionStore interface {
	// Get returns (nil, nil) when no session exists for the lead.
	Get(ctx context.Context, leadID string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	// Delete is idempotent; deleting an absent session is not an error.
	Delete(ctx context.Context, leadID string) error
}
