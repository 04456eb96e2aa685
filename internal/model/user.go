package model

import (
	"fmt"
	"strings"
	"time"
)

// Language is the interface language chosen by a user.
type Language string

const (
	LangUz Language = "uz"
	LangRu Language = "ru"

	DefaultLanguage = LangUz
)

// ParseLanguage accepts only the supported language codes.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LangUz:
		return LangUz, nil
	case LangRu:
		return LangRu, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// OrDefault returns the language or the default one when empty or unknown.
func (l Language) OrDefault() Language {
	if l == LangUz || l == LangRu {
		return l
	}
	return DefaultLanguage
}

type User struct {
	ID           int64     `json:"user_id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Language     Language  `json:"language"`
	IsSubscribed bool      `json:"is_subscribed"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName returns the best human readable name of the user.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("id%d", u.ID)
}
