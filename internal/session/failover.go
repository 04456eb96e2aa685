package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// Failover uses primary until it fails, then serves from fallback and retries
// primary once per recoveryInterval.
type Failover[T any] struct {
	primary   Store[T]
	fallback  Store[T]
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
	logger    *zerolog.Logger
}

func NewFailover[T any](primary, fallback Store[T], logger *zerolog.Logger) *Failover[T] {
	l := logger.With().Str("component", "session_failover").Logger()
	return &Failover[T]{primary: primary, fallback: fallback, logger: &l}
}

func (f *Failover[T]) usePrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Since(f.lastCheck) >= recoveryInterval {
		f.lastCheck = time.Now()
		return true
	}
	return false
}

func (f *Failover[T]) markDown(err error) {
	if !f.isDown.Swap(true) {
		f.logger.Warn().Err(err).Msg("Primary session store failed, switching to fallback")
	}
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
}

func (f *Failover[T]) markUp() {
	if f.isDown.Swap(false) {
		f.logger.Info().Msg("Primary session store recovered")
	}
}

func (f *Failover[T]) Get(ctx context.Context, userID int64) (T, bool, error) {
	if f.usePrimary() {
		v, ok, err := f.primary.Get(ctx, userID)
		if err == nil || errors.Is(err, ErrInvalidSession) {
			f.markUp()
			return v, ok, err
		}
		f.markDown(err)
	}
	return f.fallback.Get(ctx, userID)
}

func (f *Failover[T]) Put(ctx context.Context, userID int64, v T) error {
	if f.usePrimary() {
		err := f.primary.Put(ctx, userID, v)
		if err == nil || errors.Is(err, ErrInvalidSession) {
			f.markUp()
			return err
		}
		f.markDown(err)
	}
	return f.fallback.Put(ctx, userID, v)
}

// Delete clears both stores so a stale fallback entry cannot resurface.
func (f *Failover[T]) Delete(ctx context.Context, userID int64) error {
	fbErr := f.fallback.Delete(ctx, userID)
	if f.usePrimary() {
		if err := f.primary.Delete(ctx, userID); err != nil {
			f.markDown(err)
			return fbErr
		}
		f.markUp()
	}
	return fbErr
}
