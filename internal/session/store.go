// Package session keeps per-user conversation state behind a pluggable store.
package session

import (
	"context"
	"errors"
	"sync"
)

var ErrInvalidSession = errors.New("invalid session")

// Validator is implemented by session values that can check their own state.
type Validator interface {
	Validate() error
}

// Store maps a user id to its transient session value.
type Store[T any] interface {
	Get(ctx context.Context, userID int64) (T, bool, error)
	Put(ctx context.Context, userID int64, v T) error
	Delete(ctx context.Context, userID int64) error
}

func validate[T any](v T) error {
	if val, ok := any(v).(Validator); ok {
		if err := val.Validate(); err != nil {
			return errors.Join(ErrInvalidSession, err)
		}
	}
	return nil
}

// Memory is an in-process Store. Values are stored by copy. Entries live until
// deleted, so memory grows with the number of abandoned sessions.
type Memory[T any] struct {
	mu sync.RWMutex
	m  map[int64]T
}

func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{m: make(map[int64]T)}
}

func (s *Memory[T]) Get(_ context.Context, userID int64) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[userID]
	return v, ok, nil
}

func (s *Memory[T]) Put(_ context.Context, userID int64, v T) error {
	if err := validate(v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[userID] = v
	return nil
}

func (s *Memory[T]) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
	return nil
}

// Len returns the number of stored sessions.
func (s *Memory[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
