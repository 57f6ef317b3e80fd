package dnc

import (
	"context"
	"sync"
)

// MemoryRegistry is an in-memory Registry for development and tests.
type MemoryRegistry struct {
	mu      sync.RWMutex
	numbers map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{numbers: make(map[string]struct{})}
}

func (r *MemoryRegistry) Contains(_ context.Context, phone string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.numbers[NormalizePhone(phone)]
	return ok, nil
}

func (r *MemoryRegistry) Add(_ context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numbers[NormalizePhone(phone)] = struct{}{}
	return nil
}

func (r *MemoryRegistry) Remove(_ context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.numbers, NormalizePhone(phone))
	return nil
}

func (r *MemoryRegistry) BulkAdd(_ context.Context, phones []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, phone := range phones {
		r.numbers[NormalizePhone(phone)] = struct{}{}
	}
	return nil
}

func (r *MemoryRegistry) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.numbers)), nil
}
