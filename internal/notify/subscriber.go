package notify

import (
	"context"
	"fmt"
	"time"

	"consultbot/internal/chat"
	"consultbot/internal/events"
	"consultbot/internal/model"
	"consultbot/internal/texts"
)

// RegistrationCreated is the payload of events.TypeRegistrationCreated.
type RegistrationCreated struct {
	Registration model.Registration `json:"registration"`
	Username     string             `json:"username"`
	Language     model.Language     `json:"language"`
}

// SubscribeRegistrations forwards every committed registration to operators.
// The broadcast runs detached from the publishing request.
func (r *Relay) SubscribeRegistrations(bus *events.EventBus, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	bus.Subscribe(events.TypeRegistrationCreated, func(e events.Event) error {
		var p RegistrationCreated
		if err := e.Decode(&p); err != nil {
			return fmt.Errorf("decode registration event: %w", err)
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			r.Broadcast(ctx, RegistrationNotice(p))
		}()
		return nil
	})
}

// RegistrationNotice renders the operator notification for a new registration.
func RegistrationNotice(p RegistrationCreated) chat.Message {
	reg := p.Registration
	contact := fmt.Sprintf("id%d", reg.UserID)
	if p.Username != "" {
		contact = "@" + p.Username
	}
	return chat.Message{
		Text: texts.T(p.Language, texts.NewRegistration,
			reg.ID, reg.MeetingDate, reg.FullName, reg.Phone, reg.Address, reg.Company, contact),
		Choices: [][]chat.Choice{{
			chat.Button(texts.T(p.Language, texts.BtnReply), chat.ReplyUser(reg.UserID)),
		}},
	}
}
