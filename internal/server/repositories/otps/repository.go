// Package otps stores pending one-time passwords, one per account.
package otps

import (
	"context"
	"time"
)

// Repository keeps at most one pending code per account.
type Repository interface {
	// Store saves code for userID, replacing any pending one.
	Store(ctx context.Context, userID int64, code string, ttl time.Duration) error

	// Consume removes the pending code if it matches and has not expired and
	// reports whether it did. Of two concurrent calls with the right code at
	// most one returns true. Mismatch and absence are not errors.
	Consume(ctx context.Context, userID int64, code string) (bool, error)

	// Discard drops the pending code of userID, if any.
	Discard(ctx context.Context, userID int64) error
}
