// Package repository defines the storage interfaces consumed by the service
// layer. The concrete implementation lives in repository/sqlite; services
// only ever see these interfaces, so tests can substitute in-memory fakes.
//
// All interfaces are implemented by the same *sqlite.DB, so method names are
// disambiguated per table (CreateEntry, UpsertScore, ...) rather than relying
// on separate receiver types.
package repository

import (
	"context"
	"time"

	"github.com/d25/scrapbook/internal/model"
)

// UserRepository reads and writes user identity records.
type UserRepository interface {
	// Create inserts a new user, generating ID and ShareCode if unset.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail expects an already-normalized (lowercased) email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.User, error)
	GetByShareCode(ctx context.Context, shareCode string) (*model.User, error)
	// Update writes all mutable fields of an existing user.
	Update(ctx context.Context, user *model.User) error
	// Search matches q against display name, alias, and email, excluding
	// excludeID, ordered by preferred display name.
	Search(ctx context.Context, q, excludeID string, limit int) ([]model.User, error)
	// List matches q the same way but orders newest-first (admin console).
	List(ctx context.Context, q string, limit int) ([]model.User, error)
	// Delete removes the user and cascades to their entries and score row.
	Delete(ctx context.Context, id string) error
}

// EntryRepository reads and writes scrapbook entries.
type EntryRepository interface {
	CreateEntry(ctx context.Context, entry *model.Entry) error
	GetEntryByID(ctx context.Context, id string) (*model.Entry, error)
	// ListEntriesByTarget returns a page's entries newest-first, joined
	// with the authors' display fields.
	ListEntriesByTarget(ctx context.Context, targetUserID string) ([]model.EntryWithAuthor, error)
	// HasTextEntry reports whether an identical text entry already exists
	// for the (target, author, text) triple. Keyed lookup for the
	// idempotent welcome entry.
	HasTextEntry(ctx context.Context, targetUserID, authorUserID, text string) (bool, error)
	DeleteEntry(ctx context.Context, id string) error
}

// ScoreRepository maintains the best-score ledger.
type ScoreRepository interface {
	// GetScore returns the user's score row, apperror.ErrNotFound if absent.
	GetScore(ctx context.Context, userID string) (*model.ScoreRecord, error)
	// UpsertScore records a score and returns the best after the call:
	// insert when absent, overwrite only when score is strictly greater.
	UpsertScore(ctx context.Context, userID string, score int64, at time.Time) (int64, error)
	// Leaderboard returns the top rows by best score descending, ties
	// broken by earliest update first.
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardRow, error)
}

// AllowlistRepository manages the self-provisioning email allowlist.
type AllowlistRepository interface {
	// AddAllowedEmail inserts the email if absent (insert-or-ignore) and
	// returns the stored row either way. Email is normalized by the caller.
	AddAllowedEmail(ctx context.Context, email string) (*model.AllowedEmail, error)
	RemoveAllowedEmail(ctx context.Context, id string) error
	ListAllowedEmails(ctx context.Context) ([]model.AllowedEmail, error)
	IsEmailAllowed(ctx context.Context, email string) (bool, error)
}

// AccessRequestRepository manages queued provisioning requests.
type AccessRequestRepository interface {
	CreateAccessRequest(ctx context.Context, req *model.AccessRequest) error
	GetAccessRequestByID(ctx context.Context, id string) (*model.AccessRequest, error)
	// LatestPendingByEmail returns the most recent pending request for the
	// email, apperror.ErrNotFound if none.
	LatestPendingByEmail(ctx context.Context, email string) (*model.AccessRequest, error)
	// ListAccessRequests returns requests most-recent-first; status ""
	// means all statuses.
	ListAccessRequests(ctx context.Context, status model.RequestStatus, limit int) ([]model.AccessRequest, error)
	// SetAccessRequestStatus records the review decision and timestamp.
	SetAccessRequestStatus(ctx context.Context, id string, status model.RequestStatus, reviewedAt time.Time) error
}

// MetricsRepository serves the aggregate counters.
type MetricsRepository interface {
	SiteStats(ctx context.Context) (*model.SiteStats, error)
	AdminMetrics(ctx context.Context) (*model.AdminMetrics, error)
}
