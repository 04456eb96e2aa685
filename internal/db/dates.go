package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"consultbot/internal/model"
)

// AddMeetingDate inserts a new bookable date. It returns false without error
// when the date already exists; the existing row is not modified.
func (db *DB) AddMeetingDate(ctx context.Context, date string) (bool, error) {
	if !model.ValidDate(date) {
		return false, fmt.Errorf("add meeting date: invalid date %q", date)
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO meeting_dates (date, created_at) VALUES (?, ?)`, date, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			db.logger.Warn().Str("date", date).Msg("Meeting date already exists")
			return false, nil
		}
		return false, fmt.Errorf("add meeting date %s: %w", date, err)
	}
	db.logger.Info().Str("date", date).Msg("Meeting date added")
	return true, nil
}

func (db *DB) ListActiveDates(ctx context.Context) ([]string, error) {
	return db.listDates(ctx, `SELECT date FROM meeting_dates WHERE is_active = 1`)
}

// ListAvailableDates returns active dates no registration refers to.
func (db *DB) ListAvailableDates(ctx context.Context) ([]string, error) {
	return db.listDates(ctx, `
		SELECT md.date
		FROM meeting_dates md
		WHERE md.is_active = 1
		AND md.date NOT IN (SELECT meeting_date FROM registrations)`)
}

func (db *DB) ListBookedDates(ctx context.Context) ([]string, error) {
	return db.listDates(ctx, `SELECT DISTINCT meeting_date FROM registrations`)
}

// ListMeetingDates returns every date row, inactive ones included, in
// chronological order.
func (db *DB) ListMeetingDates(ctx context.Context) ([]model.MeetingDate, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, date, is_active, created_at FROM meeting_dates`)
	if err != nil {
		return nil, fmt.Errorf("list meeting dates: %w", err)
	}
	defer rows.Close()

	var out []model.MeetingDate
	for rows.Next() {
		var (
			md     model.MeetingDate
			active int
		)
		if err := rows.Scan(&md.ID, &md.Date, &active, &md.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan meeting date: %w", err)
		}
		md.IsActive = active == 1
		out = append(out, md)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return model.DateLess(out[i].Date, out[j].Date) })
	return out, nil
}

// DeactivateMeetingDate hides the date from booking but keeps the row.
func (db *DB) DeactivateMeetingDate(ctx context.Context, date string) (bool, error) {
	res, err := db.ExecContext(ctx, `UPDATE meeting_dates SET is_active = 0 WHERE date = ?`, date)
	if err != nil {
		return false, fmt.Errorf("deactivate meeting date %s: %w", date, err)
	}
	n, _ := res.RowsAffected()
	db.logger.Info().Str("date", date).Msg("Meeting date deactivated")
	return n > 0, nil
}

// DeleteMeetingDate removes the date row entirely.
func (db *DB) DeleteMeetingDate(ctx context.Context, date string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM meeting_dates WHERE date = ?`, date)
	if err != nil {
		return false, fmt.Errorf("delete meeting date %s: %w", date, err)
	}
	n, _ := res.RowsAffected()
	if _, err := db.ExecContext(ctx, `DELETE FROM date_holds WHERE date = ?`, date); err != nil {
		db.logger.Warn().Err(err).Str("date", date).Msg("Failed to drop holds of deleted date")
	}
	db.logger.Info().Str("date", date).Bool("existed", n > 0).Msg("Meeting date deleted")
	return n > 0, nil
}

// ClearMeetingDates deletes every date and returns how many were removed.
func (db *DB) ClearMeetingDates(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM meeting_dates`)
	if err != nil {
		return 0, fmt.Errorf("clear meeting dates: %w", err)
	}
	n, _ := res.RowsAffected()
	if _, err := db.ExecContext(ctx, `DELETE FROM date_holds`); err != nil {
		db.logger.Warn().Err(err).Msg("Failed to clear date holds")
	}
	db.logger.Info().Int64("count", n).Msg("All meeting dates cleared")
	return n, nil
}

func (db *DB) listDates(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dates: %w", err)
	}
	defer rows.Close()

	dates := make([]string, 0)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	model.SortDates(dates)
	return dates, nil
}
