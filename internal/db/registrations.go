package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"consultbot/internal/model"
)

// AddRegistration commits r if its date is still bookable and returns the new id.
// The availability check and the insert run as a single statement, so two
// concurrent commits for one date cannot both succeed; the loser gets
// ErrDateNotAvailable.
func (db *DB) AddRegistration(ctx context.Context, r *model.Registration) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin registration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO registrations (user_id, fullname, phone, address, company, meeting_date, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM meeting_dates WHERE date = ? AND is_active = 1)
		AND NOT EXISTS (SELECT 1 FROM registrations WHERE meeting_date = ?)
		AND NOT EXISTS (SELECT 1 FROM date_holds WHERE date = ? AND user_id != ? AND expires_at >= ?)`,
		r.UserID, r.FullName, r.Phone, r.Address, r.Company, r.MeetingDate, r.CreatedAt,
		r.MeetingDate, r.MeetingDate, r.MeetingDate, r.UserID, time.Now().UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDateNotAvailable
		}
		return 0, fmt.Errorf("insert registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert registration: %w", err)
	}
	if n == 0 {
		return 0, ErrDateNotAvailable
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("registration id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM date_holds WHERE user_id = ?`, r.UserID); err != nil {
		return 0, fmt.Errorf("release holds: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDateNotAvailable
		}
		return 0, fmt.Errorf("commit registration: %w", err)
	}

	r.ID = id
	db.logger.Info().
		Int64("registration_id", id).
		Int64("user_id", r.UserID).
		Str("date", r.MeetingDate).
		Msg("Registration added")
	return id, nil
}

const registrationColumns = `
	r.id, r.user_id, r.fullname, r.phone, r.address, r.company, r.meeting_date, r.created_at,
	COALESCE(u.username, '')`

// ListRegistrations returns registrations newest first. limit <= 0 means all.
func (db *DB) ListRegistrations(ctx context.Context, limit int) ([]model.Registration, error) {
	q := `SELECT ` + registrationColumns + `
		FROM registrations r
		LEFT JOIN users u ON r.user_id = u.user_id
		ORDER BY r.created_at DESC, r.id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return db.queryRegistrations(ctx, q, args...)
}

// ListRegistrationsPage returns one page of registrations, newest first.
func (db *DB) ListRegistrationsPage(ctx context.Context, limit, offset int) ([]model.Registration, error) {
	return db.queryRegistrations(ctx, `SELECT `+registrationColumns+`
		FROM registrations r
		LEFT JOIN users u ON r.user_id = u.user_id
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ? OFFSET ?`, limit, offset)
}

func (db *DB) ListRegistrationsByDate(ctx context.Context, date string) ([]model.Registration, error) {
	return db.queryRegistrations(ctx, `SELECT `+registrationColumns+`
		FROM registrations r
		LEFT JOIN users u ON r.user_id = u.user_id
		WHERE r.meeting_date = ?
		ORDER BY r.created_at DESC, r.id DESC`, date)
}

func (db *DB) GetLatestRegistration(ctx context.Context, userID int64) (*model.Registration, error) {
	regs, err := db.queryRegistrations(ctx, `SELECT `+registrationColumns+`
		FROM registrations r
		LEFT JOIN users u ON r.user_id = u.user_id
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT 1`, userID)
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, ErrRegistrationNotFound
	}
	return &regs[0], nil
}

func (db *DB) CountRegistrations(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

// ClearRegistrations deletes every registration and returns how many were removed.
func (db *DB) ClearRegistrations(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM registrations`)
	if err != nil {
		return 0, fmt.Errorf("clear registrations: %w", err)
	}
	n, _ := res.RowsAffected()
	db.logger.Info().Int64("count", n).Msg("All registrations cleared")
	return n, nil
}

func (db *DB) queryRegistrations(ctx context.Context, query string, args ...any) ([]model.Registration, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	out := make([]model.Registration, 0)
	for rows.Next() {
		var (
			r         model.Registration
			createdAt sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.FullName, &r.Phone, &r.Address, &r.Company,
			&r.MeetingDate, &createdAt, &r.Username); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		r.CreatedAt = createdAt.Time
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// IsNotFound reports whether err is one of the store's not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrRegistrationNotFound)
}
