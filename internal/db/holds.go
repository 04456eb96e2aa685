package db

import (
	"context"
	"fmt"
	"time"
)

// AcquireHold leases date to userID for ttl. It succeeds when the date is not
// held, the existing hold is already the user's, or the existing hold expired.
// Holds only gate selection; AddRegistration performs the authoritative check.
func (db *DB) AcquireHold(ctx context.Context, date string, userID int64, ttl time.Duration) (bool, error) {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO date_holds (date, user_id, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			user_id = excluded.user_id,
			expires_at = excluded.expires_at
		WHERE date_holds.user_id = excluded.user_id OR date_holds.expires_at < ?`,
		date, userID, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("acquire hold on %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire hold on %s: %w", date, err)
	}
	return n > 0, nil
}

// ReleaseHolds drops every hold owned by userID.
func (db *DB) ReleaseHolds(ctx context.Context, userID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM date_holds WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("release holds of %d: %w", userID, err)
	}
	return nil
}

// ListHeldDates returns dates currently leased to anyone except exceptUser.
func (db *DB) ListHeldDates(ctx context.Context, exceptUser int64) ([]string, error) {
	return db.listDates(ctx,
		`SELECT date FROM date_holds WHERE user_id != ? AND expires_at >= ?`,
		exceptUser, time.Now().UnixMilli())
}
