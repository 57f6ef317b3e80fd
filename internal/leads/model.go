package leads

import (
	"strings"
	"time"
)

// Call status values tracked per lead.
const (
	CallStatusPending   = "pending"
	CallStatusInitiated = "initiated"
	CallStatusCompleted = "completed"
	CallStatusFailed    = "failed"
	CallStatusEscalated = "escalated"
)

// Lead is a prospective patient pulled from the CRM. The ID is the CRM
// contact ID so write-backs need no mapping table.
type Lead struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email,omitempty"`
	Source     string    `json:"source,omitempty"`
	DNCListed  bool      `json:"dnc_listed"`
	CallStatus string    `json:"call_status"`
	CallSID    string    `json:"call_sid,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FullName joins the name parts, tolerating either being empty.
func (l *Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Validate checks the lead can be stored and dialed.
func (l *Lead) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(l.Phone) == "" {
		return ErrMissingPhone
	}
	return nil
}
