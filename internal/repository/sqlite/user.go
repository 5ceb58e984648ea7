package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/model"
	"github.com/d25/scrapbook/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, external_id, email, display_name, alias, bio,
	avatar_url, custom_avatar_path, share_code, created_at, last_login_at`

// Create inserts a new user. ID (xid) and ShareCode (uuid) are generated
// here when unset, mirroring how the caller-visible timestamps are filled.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	if user.ShareCode == "" {
		user.ShareCode = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.LastLoginAt.IsZero() {
		user.LastLoginAt = now
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, external_id, email, display_name, alias, bio,
			avatar_url, custom_avatar_path, share_code, created_at, last_login_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		nullable(user.ExternalID),
		user.Email,
		user.DisplayName,
		user.Alias,
		user.Bio,
		user.AvatarURL,
		user.CustomAvatarPath,
		user.ShareCode,
		user.CreatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}
	return nil
}

// GetByID retrieves a user by internal id.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetByEmail retrieves a user by normalized email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

// GetByExternalID retrieves a user by the identity provider's subject id.
func (db *DB) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	return db.getUser(ctx, `WHERE external_id = ?`, externalID)
}

// GetByShareCode retrieves a user by their public page handle.
func (db *DB) GetByShareCode(ctx context.Context, shareCode string) (*model.User, error) {
	return db.getUser(ctx, `WHERE share_code = ?`, shareCode)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users `+where, arg)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprintf("%v", arg))
		}
		return nil, fmt.Errorf("sqlite: getting user (%v): %w", arg, err)
	}
	return u, nil
}

// Update writes all mutable fields of an existing user.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET external_id = ?, email = ?, display_name = ?,
			alias = ?, bio = ?, avatar_url = ?, custom_avatar_path = ?,
			last_login_at = ?
		 WHERE id = ?`,
		nullable(user.ExternalID),
		user.Email,
		user.DisplayName,
		user.Alias,
		user.Bio,
		user.AvatarURL,
		user.CustomAvatarPath,
		user.LastLoginAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// Search matches q against display name, alias, and email, excluding the
// caller, ordered by the preferred display name. The filter is a fixed set of
// parameterized LIKE predicates — q is never spliced into the SQL.
func (db *DB) Search(ctx context.Context, q, excludeID string, limit int) ([]model.User, error) {
	pattern := "%" + q + "%"
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE id != ?
		   AND (display_name LIKE ? OR alias LIKE ? OR email LIKE ?)
		 ORDER BY CASE WHEN alias != '' THEN alias ELSE display_name END ASC
		 LIMIT ?`,
		excludeID, pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

// List matches q the same way but orders newest-first, for the admin console.
func (db *DB) List(ctx context.Context, q string, limit int) ([]model.User, error) {
	pattern := "%" + q + "%"
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE display_name LIKE ? OR alias LIKE ? OR email LIKE ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

// Delete removes a user and everything that references them: entries on
// their page, entries they authored elsewhere, and their score row. One
// transaction so a crash can't leave orphaned rows.
func (db *DB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entries WHERE target_user_id = ? OR author_user_id = ?`, id, id); err != nil {
		return fmt.Errorf("sqlite: deleting entries for user %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM scores WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting score for user %s: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete of user %s: %w", id, err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u          model.User
		externalID sql.NullString
	)
	err := s.Scan(
		&u.ID,
		&externalID,
		&u.Email,
		&u.DisplayName,
		&u.Alias,
		&u.Bio,
		&u.AvatarURL,
		&u.CustomAvatarPath,
		&u.ShareCode,
		&u.CreatedAt,
		&u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	u.ExternalID = externalID.String
	return &u, nil
}

func collectUsers(rows *sql.Rows) ([]model.User, error) {
	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}
	return users, nil
}

// nullable maps "" to NULL so the UNIQUE constraint on external_id ignores
// users that were never linked to the identity provider.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
