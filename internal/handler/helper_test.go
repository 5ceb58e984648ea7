package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/d25/scrapbook/internal/auth"
	"github.com/d25/scrapbook/internal/config"
	"github.com/d25/scrapbook/internal/model"
	"github.com/d25/scrapbook/internal/repository/sqlite"
	"github.com/d25/scrapbook/internal/service"
)

// testEnv assembles the real service stack over an in-memory database, so
// handler tests exercise the same wiring as production.
type testEnv struct {
	db       *sqlite.DB
	identity *service.IdentityService
	access   *service.AccessService
	scores   *service.ScoreService
	entries  *service.EntryService
	users    *service.UserService
	tokens   *auth.TokenService
	logger   *slog.Logger
}

var testWelcome = config.WelcomeConfig{
	AuthorEmail: "d25@iima.ac.in",
	AuthorName:  "D25",
	Text:        "Siuuuu",
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}

	identity := service.NewIdentityService(db, db, testWelcome, logger)
	access := service.NewAccessService(identity, db, db, service.SuffixDomainPolicy("iima.ac.in"), logger)
	scores := service.NewScoreService(db, logger)
	entries := service.NewEntryService(db, db, scores, logger)
	users := service.NewUserService(db, db, logger)

	return &testEnv{
		db:       db,
		identity: identity,
		access:   access,
		scores:   scores,
		entries:  entries,
		users:    users,
		tokens:   tokens,
		logger:   logger,
	}
}

func (e *testEnv) provisionUser(t *testing.T, email, name string) *model.User {
	t.Helper()
	user, err := e.identity.Provision(context.Background(), service.Assertion{
		Email:       email,
		DisplayName: name,
	})
	if err != nil {
		t.Fatalf("provisioning %s: %v", email, err)
	}
	return user
}

// asMember attaches a member principal to the request, standing in for the
// session middleware.
func asMember(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), auth.Principal{UserID: userID}))
}
