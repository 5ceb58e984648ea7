package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/model"
	"github.com/d25/scrapbook/internal/repository"
)

// compile-time check that *DB implements repository.AllowlistRepository
var _ repository.AllowlistRepository = (*DB)(nil)

// AddAllowedEmail inserts the email if absent and returns the stored row
// either way. INSERT OR IGNORE on the unique email column makes a repeated
// add a benign no-op rather than an error.
func (db *DB) AddAllowedEmail(ctx context.Context, email string) (*model.AllowedEmail, error) {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO allowed_emails (id, email, created_at) VALUES (?, ?, ?)`,
		xid.New().String(), email, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: allowlisting %s: %w", email, err)
	}

	var row model.AllowedEmail
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM allowed_emails WHERE email = ?`, email,
	).Scan(&row.ID, &row.Email, &row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading allowlist entry %s: %w", email, err)
	}
	return &row, nil
}

// RemoveAllowedEmail deletes an allowlist entry by id.
func (db *DB) RemoveAllowedEmail(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM allowed_emails WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: removing allowlist entry %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("allowlist entry", id)
	}
	return nil
}

// ListAllowedEmails returns the allowlist ordered by email.
func (db *DB) ListAllowedEmails(ctx context.Context) ([]model.AllowedEmail, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, email, created_at FROM allowed_emails ORDER BY email ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing allowed emails: %w", err)
	}
	defer rows.Close()

	list := []model.AllowedEmail{}
	for rows.Next() {
		var row model.AllowedEmail
		if err := rows.Scan(&row.ID, &row.Email, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning allowlist row: %w", err)
		}
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating allowlist rows: %w", err)
	}
	return list, nil
}

// IsEmailAllowed reports whether the (normalized) email is allowlisted.
func (db *DB) IsEmailAllowed(ctx context.Context, email string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM allowed_emails WHERE email = ? LIMIT 1`, email,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking allowlist for %s: %w", email, err)
	}
	return true, nil
}
