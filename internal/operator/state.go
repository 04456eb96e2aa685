// Package operator implements the operator panel: registrations, meeting
// dates, export, data clearing and replies to users.
package operator

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// State is the current step of an operator's panel session.
type State string

const (
	StateMainMenu       State = "main_menu"
	StateAddingDate     State = "adding_date"
	StateRemovingDate   State = "removing_date"
	StateReplyingToUser State = "replying_to_user"
)

func (s State) Valid() bool {
	switch s {
	case StateMainMenu, StateAddingDate, StateRemovingDate, StateReplyingToUser:
		return true
	}
	return false
}

// Session is the per-operator panel state.
type Session struct {
	State     State     `json:"state"`
	Picked    []string  `json:"picked,omitempty"`
	Year      int       `json:"year,omitempty"`
	Month     int       `json:"month,omitempty"`
	ReplyTo   int64     `json:"reply_to,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func mainMenu() Session {
	return Session{State: StateMainMenu, UpdatedAt: time.Now()}
}

// Validate implements session.Validator.
func (s Session) Validate() error {
	if !s.State.Valid() {
		return fmt.Errorf("unknown operator state %q", s.State)
	}
	if s.State == StateReplyingToUser && s.ReplyTo <= 0 {
		return errors.New("reply target missing")
	}
	return nil
}

// Pick adds date to the batch. It reports false when the date is already in it.
func (s *Session) Pick(date string) bool {
	if slices.Contains(s.Picked, date) {
		return false
	}
	s.Picked = append(s.Picked, date)
	return true
}

// Captures reports whether free text and cancel belong to the panel.
func (s Session) Captures() bool {
	return s.State == StateAddingDate || s.State == StateRemovingDate || s.State == StateReplyingToUser
}
