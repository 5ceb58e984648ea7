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

// compile-time check that *DB implements repository.ScoreRepository
var _ repository.ScoreRepository = (*DB)(nil)

// GetScore returns the user's score row.
func (db *DB) GetScore(ctx context.Context, userID string) (*model.ScoreRecord, error) {
	var rec model.ScoreRecord
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, best_score, updated_at FROM scores WHERE user_id = ?`,
		userID,
	).Scan(&rec.ID, &rec.UserID, &rec.BestScore, &rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("score", userID)
		}
		return nil, fmt.Errorf("sqlite: getting score for %s: %w", userID, err)
	}
	return &rec, nil
}

// UpsertScore records a score and returns the best after the call.
//
// The monotonic rule lives in a single INSERT ... ON CONFLICT statement:
// best_score (and updated_at with it) only moves when the incoming score is
// strictly greater, so the store's own statement atomicity serializes
// concurrent submissions without application-level locking.
func (db *DB) UpsertScore(ctx context.Context, userID string, score int64, at time.Time) (int64, error) {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO scores (id, user_id, best_score, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			best_score = excluded.best_score,
			updated_at = excluded.updated_at
		 WHERE excluded.best_score > scores.best_score`,
		xid.New().String(), userID, score, at,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: upserting score for %s: %w", userID, err)
	}

	var best int64
	err = db.conn.QueryRowContext(ctx,
		`SELECT best_score FROM scores WHERE user_id = ?`, userID,
	).Scan(&best)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading best score for %s: %w", userID, err)
	}
	return best, nil
}

// Leaderboard returns the top rows by best score descending. Ties go to
// whoever reached the score first (earliest updated_at).
func (db *DB) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardRow, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.display_name, u.alias, u.avatar_url, u.custom_avatar_path,
			s.best_score, s.updated_at
		 FROM scores s
		 JOIN users u ON u.id = s.user_id
		 ORDER BY s.best_score DESC, s.updated_at ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying leaderboard: %w", err)
	}
	defer rows.Close()

	board := []model.LeaderboardRow{}
	for rows.Next() {
		var r model.LeaderboardRow
		if err := rows.Scan(
			&r.DisplayName,
			&r.Alias,
			&r.AvatarURL,
			&r.CustomAvatarPath,
			&r.BestScore,
			&r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning leaderboard row: %w", err)
		}
		board = append(board, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating leaderboard rows: %w", err)
	}
	return board, nil
}
