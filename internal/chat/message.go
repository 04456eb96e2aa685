package chat

import (
	"context"

	"consultbot/internal/model"
)

// Choice is one button of a choice set. Either Action or URL is used.
type Choice struct {
	Label  string
	Action Action
	URL    string
}

// Button builds an action choice.
func Button(label string, a Action) Choice {
	return Choice{Label: label, Action: a}
}

// Link builds a URL choice.
func Link(label, url string) Choice {
	return Choice{Label: label, URL: url}
}

// Message is an outbound text with an optional choice set, one row per slice.
type Message struct {
	To      int64
	Text    string
	Choices [][]Choice
}

// Document is an outbound file.
type Document struct {
	To      int64
	Path    string
	Caption string
}

// Sender delivers messages to a chat.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DocumentSender delivers files to a chat.
type DocumentSender interface {
	SendDocument(ctx context.Context, doc Document) error
}

// Profile identifies the author of an inbound event.
type Profile struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// User converts the profile into a user record for upserts.
func (p Profile) User() *model.User {
	return &model.User{
		ID:        p.UserID,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Language:  model.DefaultLanguage,
	}
}
