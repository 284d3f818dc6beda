// Package lock provides atomic, expiring key reservations. They back the
// per-(user, contest, problem) submission gap and the redispatch worker's
// single-instance lock.
package lock

import (
	"context"
	"time"
)

// Reserver claims keys for a limited time. A key can be held by at most one
// claim until it expires or is released by its token.
type Reserver interface {
	// Reserve claims key for ttl. ok is false when a live claim exists.
	Reserve(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release drops the claim if token still owns it.
	Release(ctx context.Context, key, token string) error
}
