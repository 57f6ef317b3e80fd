package leads

import (
	"context"
	"sync"
	"time"
)

// Repository defines the interface for lead storage
type Repository interface {
	Upsert(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id string) (*Lead, error)
	UpdateCallStatus(ctx context.Context, id, callSID, status string) error
}

// InMemoryRepository is a Repository using in-memory storage, for
// development and tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Upsert stores the lead, replacing any prior version.
func (r *InMemoryRepository) Upsert(ctx context.Context, lead *Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}

	copied := *lead
	now := time.Now().UTC()
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = now
	}
	copied.UpdatedAt = now
	if copied.CallStatus == "" {
		copied.CallStatus = CallStatusPending
	}

	r.mu.Lock()
	if existing, ok := r.leads[lead.ID]; ok {
		copied.CreatedAt = existing.CreatedAt
	}
	r.leads[lead.ID] = &copied
	r.mu.Unlock()

	return nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}

	copied := *lead
	return &copied, nil
}

// UpdateCallStatus records the latest dial attempt for a lead.
func (r *InMemoryRepository) UpdateCallStatus(ctx context.Context, id, callSID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	if callSID != "" {
		lead.CallSID = callSID
	}
	lead.CallStatus = status
	lead.UpdatedAt = time.Now().UTC()
	return nil
}
