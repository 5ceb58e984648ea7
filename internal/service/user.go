package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/model"
	"github.com/d25/scrapbook/internal/repository"
)

const (
	maxAliasLength = 60
	maxBioLength   = 500

	maxPeopleListing     = 300
	maxAdminUsersListing = 200
)

// UserService serves the people directory, member profiles, and the admin
// user console.
type UserService struct {
	users   repository.UserRepository
	metrics repository.MetricsRepository
	logger  *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, metrics repository.MetricsRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, metrics: metrics, logger: logger}
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// People returns the member directory for callerID: everyone but the caller,
// filtered by q against names and email, ordered by preferred display name.
func (s *UserService) People(ctx context.Context, callerID, q string) ([]model.User, error) {
	return s.users.Search(ctx, strings.TrimSpace(q), callerID, maxPeopleListing)
}

// UpdateProfile sets the member-editable fields: the alias shown instead of
// the provider's display name, and the short bio. Empty alias falls back to
// the display name everywhere it is rendered.
func (s *UserService) UpdateProfile(ctx context.Context, userID, alias, bio string) (*model.User, error) {
	alias = strings.TrimSpace(alias)
	bio = strings.TrimSpace(bio)
	if len(alias) > maxAliasLength {
		return nil, apperror.ValidationFailed("alias", fmt.Sprintf("alias exceeds %d characters", maxAliasLength))
	}
	if len(bio) > maxBioLength {
		return nil, apperror.ValidationFailed("bio", fmt.Sprintf("bio exceeds %d characters", maxBioLength))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Alias = alias
	user.Bio = bio
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "user_id", userID)
	return user, nil
}

// AdminUsers returns users for the admin console, newest first, filtered
// by q.
func (s *UserService) AdminUsers(ctx context.Context, q string) ([]model.User, error) {
	return s.users.List(ctx, strings.TrimSpace(q), maxAdminUsersListing)
}

// Delete removes a user along with their score row and every entry they
// wrote or received.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// SiteStats returns the public counters shown on the landing page.
func (s *UserService) SiteStats(ctx context.Context) (*model.SiteStats, error) {
	return s.metrics.SiteStats(ctx)
}

// AdminMetrics returns the full counter set for the admin dashboard.
func (s *UserService) AdminMetrics(ctx context.Context) (*model.AdminMetrics, error) {
	return s.metrics.AdminMetrics(ctx)
}
