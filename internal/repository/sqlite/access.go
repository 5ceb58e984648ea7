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

// compile-time check that *DB implements repository.AccessRequestRepository
var _ repository.AccessRequestRepository = (*DB)(nil)

const accessRequestColumns = `id, email, external_id, display_name, avatar_url,
	status, requested_at, reviewed_at`

// CreateAccessRequest inserts a new pending request, generating ID and
// timestamp.
func (db *DB) CreateAccessRequest(ctx context.Context, req *model.AccessRequest) error {
	if req.ID == "" {
		req.ID = xid.New().String()
	}
	if req.Status == "" {
		req.Status = model.StatusPending
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO access_requests
			(id, email, external_id, display_name, avatar_url, status, requested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		req.Email,
		req.ExternalID,
		req.DisplayName,
		req.AvatarURL,
		string(req.Status),
		req.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting access request (email=%s): %w", req.Email, err)
	}
	return nil
}

// GetAccessRequestByID retrieves a request by id.
func (db *DB) GetAccessRequestByID(ctx context.Context, id string) (*model.AccessRequest, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accessRequestColumns+` FROM access_requests WHERE id = ?`, id)

	req, err := scanAccessRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("access request", id)
		}
		return nil, fmt.Errorf("sqlite: getting access request %s: %w", id, err)
	}
	return req, nil
}

// LatestPendingByEmail returns the most recent pending request for the email.
func (db *DB) LatestPendingByEmail(ctx context.Context, email string) (*model.AccessRequest, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accessRequestColumns+`
		 FROM access_requests
		 WHERE email = ? AND status = 'pending'
		 ORDER BY requested_at DESC
		 LIMIT 1`,
		email,
	)

	req, err := scanAccessRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("pending access request", email)
		}
		return nil, fmt.Errorf("sqlite: getting pending request for %s: %w", email, err)
	}
	return req, nil
}

// ListAccessRequests returns requests most-recent-first, optionally filtered
// by status. The two shapes are fixed queries; status is never interpolated.
func (db *DB) ListAccessRequests(ctx context.Context, status model.RequestStatus, limit int) ([]model.AccessRequest, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		rows, err = db.conn.QueryContext(ctx,
			`SELECT `+accessRequestColumns+`
			 FROM access_requests
			 WHERE status = ?
			 ORDER BY requested_at DESC
			 LIMIT ?`,
			string(status), limit,
		)
	} else {
		rows, err = db.conn.QueryContext(ctx,
			`SELECT `+accessRequestColumns+`
			 FROM access_requests
			 ORDER BY requested_at DESC
			 LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing access requests: %w", err)
	}
	defer rows.Close()

	requests := []model.AccessRequest{}
	for rows.Next() {
		req, err := scanAccessRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning access request row: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating access request rows: %w", err)
	}
	return requests, nil
}

// SetAccessRequestStatus records the review decision and timestamp.
func (db *DB) SetAccessRequestStatus(ctx context.Context, id string, status model.RequestStatus, reviewedAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE access_requests SET status = ?, reviewed_at = ? WHERE id = ?`,
		string(status), reviewedAt, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating access request %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("access request", id)
	}
	return nil
}

func scanAccessRequest(s scanner) (*model.AccessRequest, error) {
	var (
		req        model.AccessRequest
		status     string
		reviewedAt sql.NullTime
	)
	err := s.Scan(
		&req.ID,
		&req.Email,
		&req.ExternalID,
		&req.DisplayName,
		&req.AvatarURL,
		&status,
		&req.RequestedAt,
		&reviewedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Status = model.RequestStatus(status)
	if reviewedAt.Valid {
		req.ReviewedAt = &reviewedAt.Time
	}
	return &req, nil
}
