package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/model"
	"github.com/d25/scrapbook/internal/repository"
)

const (
	defaultLeaderboardSize = 20
	maxLeaderboardSize     = 100

	// maxScore bounds submissions so the float-to-int64 conversion cannot
	// overflow. float64(math.MaxInt64) rounds up past int64 range, so any
	// score at or above it must be rejected before converting.
	maxScore = float64(math.MaxInt64)
)

// ScoreService maintains each member's best game score and serves the
// leaderboard.
type ScoreService struct {
	scores repository.ScoreRepository
	logger *slog.Logger
}

// NewScoreService creates a ScoreService.
func NewScoreService(scores repository.ScoreRepository, logger *slog.Logger) *ScoreService {
	return &ScoreService{scores: scores, logger: logger}
}

// Submit records a finished game's score and returns the user's best after
// the submission. Scores arrive as floats from the client and are floored to
// whole points; the stored best only ever moves up, so replaying a worse game
// changes nothing.
func (s *ScoreService) Submit(ctx context.Context, userID string, score float64) (int64, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0, apperror.ValidationFailed("score", "score must be a non-negative number")
	}
	if score >= maxScore {
		return 0, apperror.ValidationFailed("score", "score is out of range")
	}

	floored := int64(math.Floor(score))
	best, err := s.scores.UpsertScore(ctx, userID, floored, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	if best == floored {
		s.logger.Info("new best score", "user_id", userID, "score", best)
	}
	return best, nil
}

// Best returns the user's best score, zero if they have never played.
func (s *ScoreService) Best(ctx context.Context, userID string) (int64, error) {
	record, err := s.scores.GetScore(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return record.BestScore, nil
}

// Leaderboard returns the top scorers, ties going to whoever got there
// first. limit <= 0 falls back to the default size.
func (s *ScoreService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardRow, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	return s.scores.Leaderboard(ctx, limit)
}
