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

// compile-time check that *DB implements repository.EntryRepository
var _ repository.EntryRepository = (*DB)(nil)

// CreateEntry inserts a new entry, generating its ID and timestamp.
func (db *DB) CreateEntry(ctx context.Context, entry *model.Entry) error {
	if entry.ID == "" {
		entry.ID = xid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO entries (id, target_user_id, author_user_id, kind,
			text_content, file_path, original_name, mime_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.TargetUserID,
		entry.AuthorUserID,
		string(entry.Kind),
		entry.TextContent,
		entry.FilePath,
		entry.OriginalName,
		entry.MimeType,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting entry (target=%s): %w", entry.TargetUserID, err)
	}
	return nil
}

// GetEntryByID retrieves a single entry.
func (db *DB) GetEntryByID(ctx context.Context, id string) (*model.Entry, error) {
	var e model.Entry
	var kind string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, target_user_id, author_user_id, kind, text_content,
			file_path, original_name, mime_type, created_at
		 FROM entries WHERE id = ?`, id,
	).Scan(
		&e.ID,
		&e.TargetUserID,
		&e.AuthorUserID,
		&kind,
		&e.TextContent,
		&e.FilePath,
		&e.OriginalName,
		&e.MimeType,
		&e.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("entry", id)
		}
		return nil, fmt.Errorf("sqlite: getting entry %s: %w", id, err)
	}
	e.Kind = model.EntryKind(kind)
	return &e, nil
}

// ListEntriesByTarget returns a page's entries newest-first, joined with the
// authors' preferred names and share codes.
func (db *DB) ListEntriesByTarget(ctx context.Context, targetUserID string) ([]model.EntryWithAuthor, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT e.id, e.target_user_id, e.author_user_id, e.kind,
			e.text_content, e.file_path, e.original_name, e.mime_type,
			e.created_at,
			CASE WHEN au.alias != '' THEN au.alias ELSE au.display_name END,
			au.share_code
		 FROM entries e
		 JOIN users au ON au.id = e.author_user_id
		 WHERE e.target_user_id = ?
		 ORDER BY e.created_at DESC`,
		targetUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing entries for %s: %w", targetUserID, err)
	}
	defer rows.Close()

	entries := []model.EntryWithAuthor{}
	for rows.Next() {
		var (
			e    model.EntryWithAuthor
			kind string
		)
		if err := rows.Scan(
			&e.ID,
			&e.TargetUserID,
			&e.AuthorUserID,
			&kind,
			&e.TextContent,
			&e.FilePath,
			&e.OriginalName,
			&e.MimeType,
			&e.CreatedAt,
			&e.AuthorName,
			&e.AuthorShareCode,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning entry row: %w", err)
		}
		e.Kind = model.EntryKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating entry rows: %w", err)
	}
	return entries, nil
}

// HasTextEntry reports whether an identical text entry already exists for the
// (target, author, text) triple. The welcome-entry guarantee is keyed on this.
func (db *DB) HasTextEntry(ctx context.Context, targetUserID, authorUserID, text string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM entries
		 WHERE target_user_id = ? AND author_user_id = ?
		   AND kind = 'text' AND text_content = ?
		 LIMIT 1`,
		targetUserID, authorUserID, text,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking text entry: %w", err)
	}
	return true, nil
}

// DeleteEntry removes a single entry.
func (db *DB) DeleteEntry(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting entry %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("entry", id)
	}
	return nil
}
