package model

import (
	"errors"
	"time"
)

var ErrIncompleteRegistration = errors.New("registration is incomplete")

type Registration struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	FullName    string    `json:"fullname"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Company     string    `json:"company"`
	MeetingDate string    `json:"meeting_date"`
	CreatedAt   time.Time `json:"created_at"`

	// Username is filled by joined queries only.
	Username string `json:"username,omitempty"`
}

// Validate rejects registrations with missing fields.
func (r *Registration) Validate() error {
	if r.UserID == 0 || r.FullName == "" || r.Phone == "" || r.Address == "" ||
		r.Company == "" || r.MeetingDate == "" {
		return ErrIncompleteRegistration
	}
	if !ValidDate(r.MeetingDate) {
		return ErrIncompleteRegistration
	}
	return nil
}
