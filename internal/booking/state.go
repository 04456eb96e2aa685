// Package booking implements the user registration dialog as a finite state machine.
package booking

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"consultbot/internal/model"
)

// State represents the current step of the registration dialog.
type State string

const (
	StateLanguageSelection      State = "language_selection"
	StateWaitingForSubscription State = "waiting_for_subscription"
	StateSelectingDate          State = "selecting_date"
	StateEnteringFullName       State = "entering_fullname"
	StateEnteringPhone          State = "entering_phone"
	StateEnteringAddress        State = "entering_address"
	StateEnteringCompany        State = "entering_company"
)

var ErrIllegalTransition = errors.New("illegal state transition")

// transitions lists the allowed moves. Leaving the dialog (completion or
// cancel) deletes the session and is not a transition.
var transitions = map[State][]State{
	StateLanguageSelection:      {StateWaitingForSubscription, StateSelectingDate},
	StateWaitingForSubscription: {StateSelectingDate},
	StateSelectingDate:          {StateEnteringFullName, StateEnteringCompany},
	StateEnteringFullName:       {StateEnteringPhone},
	StateEnteringPhone:          {StateEnteringAddress},
	StateEnteringAddress:        {StateEnteringCompany},
	StateEnteringCompany:        {StateSelectingDate},
}

// Valid reports whether s is a node of the dialog graph.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition checks if moving from one state to another is allowed.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// Draft accumulates the registration fields.
type Draft struct {
	Date     string `json:"date,omitempty"`
	FullName string `json:"fullname,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Company  string `json:"company,omitempty"`
}

// Complete reports whether every field is filled.
func (d Draft) Complete() bool {
	return d.Date != "" && d.FullName != "" && d.Phone != "" && d.Address != "" && d.Company != ""
}

// Session is the per-user dialog state.
type Session struct {
	State     State          `json:"state"`
	Language  model.Language `json:"language"`
	Draft     Draft          `json:"draft"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewSession starts a dialog in the given state.
func NewSession(state State, lang model.Language) Session {
	now := time.Now()
	return Session{
		State:     state,
		Language:  lang.OrDefault(),
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Validate implements session.Validator.
func (s Session) Validate() error {
	if !s.State.Valid() {
		return fmt.Errorf("unknown state %q", s.State)
	}
	if _, err := model.ParseLanguage(string(s.Language)); err != nil {
		return err
	}
	return nil
}

// Advance moves the session to the next state. Staying in place is allowed.
func (s *Session) Advance(to State) error {
	if s.State != to && !CanTransition(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.State, to)
	}
	s.State = to
	s.UpdatedAt = time.Now()
	return nil
}
