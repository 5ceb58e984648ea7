package sqlite

import (
	"context"
	"fmt"

	"github.com/d25/scrapbook/internal/model"
	"github.com/d25/scrapbook/internal/repository"
)

// compile-time check that *DB implements repository.MetricsRepository
var _ repository.MetricsRepository = (*DB)(nil)

// SiteStats returns the public aggregate counters in one round-trip.
func (db *DB) SiteStats(ctx context.Context) (*model.SiteStats, error) {
	var s model.SiteStats
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM entries),
			(SELECT COUNT(*) FROM entries WHERE kind = 'text'),
			(SELECT COUNT(*) FROM entries WHERE kind = 'image'),
			(SELECT COUNT(*) FROM entries WHERE kind = 'audio')
	`).Scan(
		&s.TotalUsers,
		&s.TotalEntries,
		&s.TextEntries,
		&s.ImageEntries,
		&s.AudioEntries,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading site stats: %w", err)
	}
	return &s, nil
}

// AdminMetrics returns the console counters in one round-trip.
func (db *DB) AdminMetrics(ctx context.Context) (*model.AdminMetrics, error) {
	var m model.AdminMetrics
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM entries),
			(SELECT COUNT(*) FROM entries WHERE kind = 'text'),
			(SELECT COUNT(*) FROM entries WHERE kind = 'image'),
			(SELECT COUNT(*) FROM entries WHERE kind = 'audio'),
			(SELECT COUNT(*) FROM allowed_emails),
			(SELECT COUNT(*) FROM access_requests WHERE status = 'pending'),
			(SELECT COUNT(*) FROM access_requests WHERE status = 'approved'),
			(SELECT COUNT(*) FROM access_requests WHERE status = 'rejected'),
			(SELECT COUNT(*) FROM users WHERE datetime(last_login_at) >= datetime('now', '-7 day'))
	`).Scan(
		&m.TotalUsers,
		&m.TotalEntries,
		&m.TextEntries,
		&m.ImageEntries,
		&m.AudioEntries,
		&m.TotalAllowedEmails,
		&m.PendingRequests,
		&m.ApprovedRequests,
		&m.RejectedRequests,
		&m.ActiveUsers7d,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading admin metrics: %w", err)
	}
	return &m, nil
}
