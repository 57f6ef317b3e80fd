// Package dnc manages the do-not-call list consulted before any
// outbound dial. Callers treat a failed check as "on the list".
package dnc

import (
	"context"
	"strings"
)

// Registry is a set of normalized phone numbers that must not be called.
type Registry interface {
	// Contains reports whether the number is on the list. An error
	// means the answer is unknown; callers must fail safe.
	Contains(ctx context.Context, phone string) (bool, error)
	Add(ctx context.Context, phone string) error
	Remove(ctx context.Context, phone string) error
	BulkAdd(ctx context.Context, phones []string) error
	Count(ctx context.Context) (int64, error)
}

// NormalizePhone reduces a phone number to digits and prefixes a US
// country code onto bare 10-digit numbers, so formatting differences
// never split list entries.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if len(normalized) == 10 {
		normalized = "1" + normalized
	}
	return normalized
}
