// Package server wires the application together: it owns the router, the
// database handle, and the dependency graph from repositories up to
// handlers, and runs the HTTP listener with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/d25/scrapbook/internal/auth"
	"github.com/d25/scrapbook/internal/config"
	"github.com/d25/scrapbook/internal/handler"
	"github.com/d25/scrapbook/internal/middleware"
	sqliteRepo "github.com/d25/scrapbook/internal/repository/sqlite"
	"github.com/d25/scrapbook/internal/service"
)

// Server is the composition root. It owns the database connection and closes
// it on shutdown.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database, builds the service graph, registers all routes,
// and backfills welcome entries for pages created before startup.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}

	identity := service.NewIdentityService(s.db, s.db, s.cfg.Welcome, s.logger)
	policy := service.SuffixDomainPolicy(s.cfg.Auth.AllowedDomain)
	access := service.NewAccessService(identity, s.db, s.db, policy, s.logger)
	scores := service.NewScoreService(s.db, s.logger)
	entries := service.NewEntryService(s.db, s.db, scores, s.logger)
	users := service.NewUserService(s.db, s.db, s.logger)

	// Pages that predate the welcome feature get their entry on boot.
	seedCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := identity.SeedWelcomeEntries(seedCtx); err != nil {
		return fmt.Errorf("seeding welcome entries: %w", err)
	}

	var google *auth.GoogleProvider
	if s.cfg.OAuthConfigured() {
		google = auth.NewGoogleProvider(
			s.cfg.Auth.GoogleClientID,
			s.cfg.Auth.GoogleClientSecret,
			s.cfg.Auth.GoogleCallbackURL,
		)
	} else {
		s.logger.Warn("google oauth not configured, provider sign-in disabled")
	}

	secure := strings.HasPrefix(s.cfg.Server.BaseURL, "https://")
	creds := auth.NewAdminCredentials(s.cfg.Auth.AdminLoginID, s.cfg.Auth.AdminPasswordHash)

	authHandler := handler.NewAuthHandler(access, users, google, tokens,
		s.cfg.Auth.AllowedDomain, s.cfg.Auth.DevLogin, secure, s.logger)
	adminHandler := handler.NewAdminHandler(creds, tokens, access, users, entries, secure, s.logger)
	pageHandler := handler.NewPageHandler(entries, s.logger)
	memberHandler := handler.NewMemberHandler(users, scores, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Get("/auth/google/login", authHandler.HandleGoogleLogin)
	s.router.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
	s.router.Post("/auth/dev", authHandler.HandleDevLogin)
	s.router.Post("/auth/logout", authHandler.HandleLogout)
	s.router.Post("/admin/login", adminHandler.HandleLogin)
	s.router.Post("/admin/logout", adminHandler.HandleLogout)

	s.router.Route("/api", func(r chi.Router) {
		// Member-only surface.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireMember(tokens))
			r.Get("/me", authHandler.HandleMe)
			r.Get("/people", memberHandler.HandlePeople)
			r.Get("/profile", memberHandler.HandleGetProfile)
			r.Put("/profile", memberHandler.HandleUpdateProfile)
			r.Post("/pages/{shareCode}/entries", pageHandler.HandleCreateEntry)
			r.Post("/scores", memberHandler.HandleSubmitScore)
			r.Get("/stats", memberHandler.HandleSiteStats)
		})

		// Readable by members and the admin console alike.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequirePortal(tokens))
			r.Get("/pages/{shareCode}", pageHandler.HandleGetPage)
			r.Get("/scores/leaderboard", memberHandler.HandleLeaderboard)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(tokens))
			r.Get("/requests", adminHandler.HandleListRequests)
			r.Get("/requests/{id}", adminHandler.HandleGetRequest)
			r.Post("/requests/{id}/approve", adminHandler.HandleApproveRequest)
			r.Post("/requests/{id}/reject", adminHandler.HandleRejectRequest)
			r.Get("/allowlist", adminHandler.HandleListAllowlist)
			r.Post("/allowlist", adminHandler.HandleAddAllowedEmail)
			r.Delete("/allowlist/{id}", adminHandler.HandleRemoveAllowedEmail)
			r.Get("/users", adminHandler.HandleListUsers)
			r.Delete("/users/{id}", adminHandler.HandleDeleteUser)
			r.Delete("/entries/{id}", adminHandler.HandleDeleteEntry)
			r.Get("/metrics", adminHandler.HandleMetrics)
		})
	})

	return nil
}

// Start runs the listener until SIGINT/SIGTERM, then drains in-flight
// requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Server.Port),
			slog.String("database", s.cfg.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
