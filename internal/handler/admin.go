package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/auth"
	"github.com/d25/scrapbook/internal/service"
)

// AdminHandler serves the admin console: login, the access-request review
// queue, the allowlist, user and entry moderation, and metrics. Everything
// under /api/admin sits behind the admin session middleware; login itself
// does not.
type AdminHandler struct {
	creds   *auth.AdminCredentials
	tokens  *auth.TokenService
	access  *service.AccessService
	users   *service.UserService
	entries *service.EntryService
	secure  bool
	logger  *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	creds *auth.AdminCredentials,
	tokens *auth.TokenService,
	access *service.AccessService,
	users *service.UserService,
	entries *service.EntryService,
	secure bool,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		creds:   creds,
		tokens:  tokens,
		access:  access,
		users:   users,
		entries: entries,
		secure:  secure,
		logger:  logger,
	}
}

// HandleLogin verifies the operator credentials and issues an admin session.
//
// HTTP: POST /admin/login  {"loginId": "...", "password": "..."}
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.creds.Enabled() {
		writeError(w, apperror.Forbidden("admin console is not configured"))
		return
	}

	var req struct {
		LoginID  string `json:"loginId"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.creds.Verify(req.LoginID, req.Password); err != nil {
		h.logger.Warn("admin login rejected", slog.String("login_id", req.LoginID))
		writeError(w, apperror.Unauthorized("invalid credentials"))
		return
	}

	token, err := h.tokens.Generate("admin", auth.RoleAdmin)
	if err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("admin signed in")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleLogout clears the admin session cookie.
//
// HTTP: POST /admin/logout
func (h *AdminHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// HandleListRequests lists access requests, newest first.
//
// HTTP: GET /api/admin/requests?status=pending|approved|rejected
func (h *AdminHandler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.access.ListRequests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// HandleGetRequest returns a single access request.
//
// HTTP: GET /api/admin/requests/{id}
func (h *AdminHandler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.access.Request(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// HandleApproveRequest grants a request and returns the created (or linked)
// user.
//
// HTTP: POST /api/admin/requests/{id}/approve
func (h *AdminHandler) HandleApproveRequest(w http.ResponseWriter, r *http.Request) {
	user, err := h.access.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleRejectRequest denies a request.
//
// HTTP: POST /api/admin/requests/{id}/reject
func (h *AdminHandler) HandleRejectRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.access.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// HandleListAllowlist returns the allowlist, ordered by email.
//
// HTTP: GET /api/admin/allowlist
func (h *AdminHandler) HandleListAllowlist(w http.ResponseWriter, r *http.Request) {
	rows, err := h.access.ListAllowedEmails(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleAddAllowedEmail adds an email to the allowlist. Duplicates return
// the existing row.
//
// HTTP: POST /api/admin/allowlist  {"email": "..."}
func (h *AdminHandler) HandleAddAllowedEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	row, err := h.access.AddAllowedEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

// HandleRemoveAllowedEmail deletes an allowlist row.
//
// HTTP: DELETE /api/admin/allowlist/{id}
func (h *AdminHandler) HandleRemoveAllowedEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.access.RemoveAllowedEmail(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListUsers lists users for the console, newest first, filtered
// by ?q=.
//
// HTTP: GET /api/admin/users?q=
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.AdminUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleDeleteUser removes a user and everything attached to them.
//
// HTTP: DELETE /api/admin/users/{id}
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteEntry removes a single entry.
//
// HTTP: DELETE /api/admin/entries/{id}
func (h *AdminHandler) HandleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.entries.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMetrics returns the dashboard counters.
//
// HTTP: GET /api/admin/metrics
func (h *AdminHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.users.AdminMetrics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}
