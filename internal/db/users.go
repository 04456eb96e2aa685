package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"consultbot/internal/model"
)

// UpsertUser creates the user on first contact or refreshes the name fields.
// Language and subscription are left untouched for existing users.
func (db *DB) UpsertUser(ctx context.Context, u *model.User) error {
	lang := u.Language.OrDefault()
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name`,
		u.ID, u.Username, u.FirstName, u.LastName, string(lang), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return nil
}

func (db *DB) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	row := db.QueryRowContext(ctx, `
		SELECT user_id, username, first_name, last_name, language, is_subscribed, created_at
		FROM users
		WHERE user_id = ?`, userID)

	var (
		u                           model.User
		username, first, last, lang sql.NullString
		subscribed                  sql.NullInt64
		createdAt                   sql.NullTime
	)
	err := row.Scan(&u.ID, &username, &first, &last, &lang, &subscribed, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	u.Username = username.String
	u.FirstName = first.String
	u.LastName = last.String
	u.Language = model.Language(lang.String).OrDefault()
	u.IsSubscribed = subscribed.Int64 == 1
	u.CreatedAt = createdAt.Time
	return &u, nil
}

func (db *DB) SetUserLanguage(ctx context.Context, userID int64, lang model.Language) error {
	if _, err := db.ExecContext(ctx, `UPDATE users SET language = ? WHERE user_id = ?`,
		string(lang.OrDefault()), userID); err != nil {
		return fmt.Errorf("set language for %d: %w", userID, err)
	}
	db.logger.Info().Int64("user_id", userID).Str("language", string(lang)).Msg("User language set")
	return nil
}

func (db *DB) SetUserSubscribed(ctx context.Context, userID int64, subscribed bool) error {
	v := 0
	if subscribed {
		v = 1
	}
	if _, err := db.ExecContext(ctx, `UPDATE users SET is_subscribed = ? WHERE user_id = ?`, v, userID); err != nil {
		return fmt.Errorf("set subscribed for %d: %w", userID, err)
	}
	return nil
}
