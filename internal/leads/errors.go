package leads

import "errors"

var (
	// ErrMissingID is returned when a lead has no CRM contact ID
	ErrMissingID = errors.New("lead id is required")

	// ErrMissingPhone is returned when a lead has no phone number to dial
	ErrMissingPhone = errors.New("phone is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
