package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/auth"
	"github.com/d25/scrapbook/internal/service"
)

// MemberHandler serves the signed-in member surface: the people directory,
// the member's own profile, scores, and the public site stats.
type MemberHandler struct {
	users  *service.UserService
	scores *service.ScoreService
	logger *slog.Logger
}

// NewMemberHandler creates a MemberHandler.
func NewMemberHandler(users *service.UserService, scores *service.ScoreService, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{users: users, scores: scores, logger: logger}
}

// HandlePeople lists everyone except the caller, optionally filtered by ?q=.
//
// HTTP: GET /api/people?q=
func (h *MemberHandler) HandlePeople(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not signed in"))
		return
	}

	people, err := h.users.People(r.Context(), principal.UserID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

// HandleGetProfile returns the caller's own profile.
//
// HTTP: GET /api/profile
func (h *MemberHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not signed in"))
		return
	}

	user, err := h.users.Get(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateProfile sets the caller's alias and bio.
//
// HTTP: PUT /api/profile  {"alias": "...", "bio": "..."}
func (h *MemberHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not signed in"))
		return
	}

	var req struct {
		Alias string `json:"alias"`
		Bio   string `json:"bio"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), principal.UserID, req.Alias, req.Bio)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleSubmitScore records a finished game. The response carries the best
// score after the submission, which is unchanged when the game was worse.
//
// HTTP: POST /api/scores  {"score": 128.5}
func (h *MemberHandler) HandleSubmitScore(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not signed in"))
		return
	}

	var req struct {
		Score float64 `json:"score"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	best, err := h.scores.Submit(r.Context(), principal.UserID, req.Score)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"bestScore": best})
}

// HandleLeaderboard returns the top scorers. ?limit= caps the rows.
//
// HTTP: GET /api/scores/leaderboard?limit=
func (h *MemberHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("limit", "limit must be a number"))
			return
		}
		limit = n
	}

	rows, err := h.scores.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleSiteStats returns the public counters.
//
// HTTP: GET /api/stats
func (h *MemberHandler) HandleSiteStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.SiteStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
