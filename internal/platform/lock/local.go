package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

type claim struct {
	token   string
	expires time.Time
}

// live reports whether the claim still holds at now. A claim stays held up
// to and including its expiry instant.
func (c claim) live(now time.Time) bool {
	return !now.After(c.expires)
}

// LocalReserver keeps claims in process memory. It is only safe when a
// single instance admits runs.
type LocalReserver struct {
	claims *xsync.MapOf[string, claim]
	now    func() time.Time
}

func NewLocalReserver() *LocalReserver {
	return NewLocalReserverWithClock(time.Now)
}

// NewLocalReserverWithClock expires claims against now instead of the wall
// clock.
func NewLocalReserverWithClock(now func() time.Time) *LocalReserver {
	return &LocalReserver{
		claims: xsync.NewMapOf[string, claim](),
		now:    now,
	}
}

func (l *LocalReserver) Reserve(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	now := l.now()
	token := uuid.NewString()
	won := false
	l.claims.Compute(key, func(old claim, loaded bool) (claim, bool) {
		if loaded && old.live(now) {
			return old, false
		}
		won = true
		return claim{token: token, expires: now.Add(ttl)}, false
	})
	if !won {
		return "", false, nil
	}
	return token, true, nil
}

func (l *LocalReserver) Release(_ context.Context, key, token string) error {
	l.claims.Compute(key, func(old claim, loaded bool) (claim, bool) {
		if !loaded {
			return old, true
		}
		return old, old.token == token
	})
	return nil
}

// Sweep drops expired claims.
func (l *LocalReserver) Sweep() {
	now := l.now()
	l.claims.Range(func(key string, c claim) bool {
		if !c.live(now) {
			l.claims.Compute(key, func(old claim, loaded bool) (claim, bool) {
				return old, !loaded || !old.live(now)
			})
		}
		return true
	})
}

// Len is the number of stored claims, expired ones included.
func (l *LocalReserver) Len() int {
	return l.claims.Size()
}
