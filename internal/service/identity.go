// Package service implements the application's business logic on top of the
// repository interfaces. Services validate input, enforce domain rules, and
// translate storage errors into the apperror taxonomy; handlers stay thin.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/config"
	"github.com/d25/scrapbook/internal/model"
	"github.com/d25/scrapbook/internal/repository"
)

// ErrUnresolved is returned by IdentityService.Resolve when the assertion
// matches no existing user. Callers decide what happens next (self-provision,
// queue an access request, or fail).
var ErrUnresolved = errors.New("identity does not resolve to a user")

// Assertion is a verified identity claim from an external provider: who the
// person is according to Google (or the dev login), not yet tied to a local
// account.
type Assertion struct {
	ExternalID  string
	Email       string
	DisplayName string
	AvatarURL   string
}

// NormalizeEmail trims and lowercases a raw email address. Empty input is a
// validation error; every email stored or compared goes through here first.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	return email, nil
}

// IdentityService resolves identity assertions to local users and provisions
// new accounts, keeping profile fields in sync with the provider on every
// sign-in.
type IdentityService struct {
	users   repository.UserRepository
	entries repository.EntryRepository
	welcome config.WelcomeConfig
	logger  *slog.Logger
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(users repository.UserRepository, entries repository.EntryRepository, welcome config.WelcomeConfig, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		users:   users,
		entries: entries,
		welcome: welcome,
		logger:  logger,
	}
}

// Resolve matches an assertion to an existing user, preferring the stable
// external id over the email. On a match the stored profile is refreshed from
// the assertion and the last-login timestamp is stamped. A match by email
// additionally attaches the external id, so later logins resolve by it even
// if the email changes on the provider side.
//
// Returns ErrUnresolved when neither lookup matches.
func (s *IdentityService) Resolve(ctx context.Context, a Assertion) (*model.User, error) {
	email, err := NormalizeEmail(a.Email)
	if err != nil {
		return nil, err
	}

	if a.ExternalID != "" {
		user, err := s.users.GetByExternalID(ctx, a.ExternalID)
		switch {
		case err == nil:
			user.Email = email
			return s.refresh(ctx, user, a)
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, err
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		user.ExternalID = a.ExternalID
		return s.refresh(ctx, user, a)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, err
	}

	return nil, ErrUnresolved
}

// refresh writes provider-owned fields back to the stored user and ensures
// the welcome entry exists on their page.
func (s *IdentityService) refresh(ctx context.Context, user *model.User, a Assertion) (*model.User, error) {
	if a.DisplayName != "" {
		user.DisplayName = a.DisplayName
	}
	if a.AvatarURL != "" {
		user.AvatarURL = a.AvatarURL
	}
	user.LastLoginAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("refreshing user %s: %w", user.ID, err)
	}
	if err := s.EnsureWelcomeEntry(ctx, user.ID); err != nil {
		return nil, err
	}

	s.logger.Info("user signed in", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Provision creates a brand-new user from an assertion. The display name
// falls back to the email when the provider supplies none, and the new page
// immediately receives its welcome entry.
func (s *IdentityService) Provision(ctx context.Context, a Assertion) (*model.User, error) {
	email, err := NormalizeEmail(a.Email)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(a.DisplayName)
	if displayName == "" {
		displayName = email
	}

	user := &model.User{
		ExternalID:  a.ExternalID,
		Email:       email,
		DisplayName: displayName,
		AvatarURL:   a.AvatarURL,
		LastLoginAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("provisioning user %s: %w", email, err)
	}
	if err := s.EnsureWelcomeEntry(ctx, user.ID); err != nil {
		return nil, err
	}

	s.logger.Info("user provisioned", "user_id", user.ID, "email", email)
	return user, nil
}

// EnsureWelcomeEntry places the configured welcome text on a user's page,
// authored by the sentinel welcome account. Safe to call repeatedly; the
// entry is keyed by (target, author, text) and never duplicated.
func (s *IdentityService) EnsureWelcomeEntry(ctx context.Context, targetUserID string) error {
	author, err := s.welcomeAuthor(ctx)
	if err != nil {
		return err
	}

	// The sentinel writes on its own page too.
	exists, err := s.entries.HasTextEntry(ctx, targetUserID, author.ID, s.welcome.Text)
	if err != nil {
		return fmt.Errorf("checking welcome entry for %s: %w", targetUserID, err)
	}
	if exists {
		return nil
	}

	entry := &model.Entry{
		TargetUserID: targetUserID,
		AuthorUserID: author.ID,
		Kind:         model.EntryText,
		TextContent:  s.welcome.Text,
	}
	if err := s.entries.CreateEntry(ctx, entry); err != nil {
		return fmt.Errorf("creating welcome entry for %s: %w", targetUserID, err)
	}
	return nil
}

// SeedWelcomeEntries backfills the welcome entry for every existing user.
// Run once at startup so pages created before the feature still carry it.
func (s *IdentityService) SeedWelcomeEntries(ctx context.Context) error {
	users, err := s.users.List(ctx, "", 10000)
	if err != nil {
		return fmt.Errorf("listing users for welcome seed: %w", err)
	}
	for _, u := range users {
		if err := s.EnsureWelcomeEntry(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

// welcomeAuthor finds or creates the sentinel user that authors welcome
// entries.
func (s *IdentityService) welcomeAuthor(ctx context.Context) (*model.User, error) {
	author, err := s.users.GetByEmail(ctx, s.welcome.AuthorEmail)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	author = &model.User{
		Email:       s.welcome.AuthorEmail,
		DisplayName: s.welcome.AuthorName,
	}
	if err := s.users.Create(ctx, author); err != nil {
		return nil, fmt.Errorf("creating welcome author: %w", err)
	}
	s.logger.Info("welcome author created", "user_id", author.ID, "email", author.Email)
	return author, nil
}
