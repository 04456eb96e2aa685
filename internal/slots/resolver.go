// Package slots answers which meeting dates can still be booked.
package slots

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrDateTaken = errors.New("date is no longer available")

// Status of a date as shown to a particular viewer.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
	StatusHeld      Status = "held"
)

// DateSlot is one entry of the date board.
type DateSlot struct {
	Date   string `json:"date"`
	Status Status `json:"status"`
}

// Open reports whether the slot can be picked.
func (s DateSlot) Open() bool {
	return s.Status == StatusAvailable
}

// DateStore is the part of the persistence layer the resolver reads.
type DateStore interface {
	ListActiveDates(ctx context.Context) ([]string, error)
	ListAvailableDates(ctx context.Context) ([]string, error)
	ListBookedDates(ctx context.Context) ([]string, error)
	ListHeldDates(ctx context.Context, exceptUser int64) ([]string, error)
	AcquireHold(ctx context.Context, date string, userID int64, ttl time.Duration) (bool, error)
	ReleaseHolds(ctx context.Context, userID int64) error
}

// Resolver computes availability from persisted state on every call.
type Resolver struct {
	store   DateStore
	holdTTL time.Duration
}

// NewResolver creates a resolver. holdTTL bounds how long a picked date stays
// reserved for a session that has not committed yet.
func NewResolver(store DateStore, holdTTL time.Duration) *Resolver {
	if holdTTL <= 0 {
		holdTTL = 30 * time.Minute
	}
	return &Resolver{store: store, holdTTL: holdTTL}
}

// Available returns active dates that no registration refers to.
func (r *Resolver) Available(ctx context.Context) ([]string, error) {
	return r.store.ListAvailableDates(ctx)
}

// IsAvailable re-reads the store; it never trusts a previously rendered list.
func (r *Resolver) IsAvailable(ctx context.Context, date string) (bool, error) {
	dates, err := r.Available(ctx)
	if err != nil {
		return false, err
	}
	for _, d := range dates {
		if d == date {
			return true, nil
		}
	}
	return false, nil
}

// Board lists every active date with its status for viewer. Dates held by
// other sessions are shown as held so they cannot be picked twice.
func (r *Resolver) Board(ctx context.Context, viewer int64) ([]DateSlot, error) {
	active, err := r.store.ListActiveDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("active dates: %w", err)
	}
	booked, err := r.store.ListBookedDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("booked dates: %w", err)
	}
	held, err := r.store.ListHeldDates(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("held dates: %w", err)
	}

	bookedSet := toSet(booked)
	heldSet := toSet(held)

	board := make([]DateSlot, 0, len(active))
	for _, d := range active {
		st := StatusAvailable
		switch {
		case bookedSet[d]:
			st = StatusBooked
		case heldSet[d]:
			st = StatusHeld
		}
		board = append(board, DateSlot{Date: d, Status: st})
	}
	return board, nil
}

// Reserve checks that date is still available and leases it to userID.
// ErrDateTaken means another session booked or holds it.
func (r *Resolver) Reserve(ctx context.Context, date string, userID int64) error {
	ok, err := r.IsAvailable(ctx, date)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDateTaken
	}
	// Drop the user's other leases first; a session holds at most one date.
	if err := r.store.ReleaseHolds(ctx, userID); err != nil {
		return err
	}
	acquired, err := r.store.AcquireHold(ctx, date, userID, r.holdTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrDateTaken
	}
	return nil
}

// Release drops any lease held by userID.
func (r *Resolver) Release(ctx context.Context, userID int64) error {
	return r.store.ReleaseHolds(ctx, userID)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
