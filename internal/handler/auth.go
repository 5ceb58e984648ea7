package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/auth"
	"github.com/d25/scrapbook/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler drives the sign-in flows: the Google OAuth handshake, the
// config-gated dev login, logout, and the current-user endpoint.
type AuthHandler struct {
	access   *service.AccessService
	users    *service.UserService
	google   *auth.GoogleProvider // nil when OAuth is not configured
	tokens   *auth.TokenService
	domain   string // hosted-domain hint passed to Google
	devLogin bool
	secure   bool // mark cookies Secure (https deployments)
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google may be nil; the login route
// then reports that sign-in is unavailable.
func NewAuthHandler(
	access *service.AccessService,
	users *service.UserService,
	google *auth.GoogleProvider,
	tokens *auth.TokenService,
	domain string,
	devLogin bool,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		access:   access,
		users:    users,
		google:   google,
		tokens:   tokens,
		domain:   domain,
		devLogin: devLogin,
		secure:   secure,
		logger:   logger,
	}
}

// HandleGoogleLogin starts the OAuth handshake.
//
// HTTP: GET /auth/google/login
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "oauth_unavailable",
			Message: "Google sign-in is not configured",
		})
		return
	}

	// Random single-use state, verified on callback.
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state, h.domain), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback finishes the handshake. A recognized or allowlisted
// identity gets a session cookie; anyone else lands back on the front page
// with an auth query parameter explaining what happened.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		http.Redirect(w, r, "/?auth=error", http.StatusTemporaryRedirect)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("oauth callback state mismatch")
		http.Redirect(w, r, "/?auth=error", http.StatusTemporaryRedirect)
		return
	}
	h.clearCookie(w, stateCookie)

	gu, err := h.google.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Error("oauth exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?auth=error", http.StatusTemporaryRedirect)
		return
	}

	decision, err := h.access.ResolveOrQueue(r.Context(), service.Assertion{
		ExternalID:  gu.Subject,
		Email:       gu.Email,
		DisplayName: gu.Name,
		AvatarURL:   auth.NormalizeGooglePicture(gu.Picture),
	})
	switch {
	case err == nil && decision.User != nil:
		if err := h.issueSession(w, decision.User.ID, auth.RoleMember); err != nil {
			h.logger.Error("issuing session", slog.String("error", err.Error()))
			http.Redirect(w, r, "/?auth=error", http.StatusTemporaryRedirect)
			return
		}
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
	case err == nil:
		http.Redirect(w, r, "/?auth="+string(decision.Reason), http.StatusTemporaryRedirect)
	case isForbidden(err):
		http.Redirect(w, r, "/?auth=domain_denied", http.StatusTemporaryRedirect)
	default:
		h.logger.Error("sign-in failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?auth=error", http.StatusTemporaryRedirect)
	}
}

// HandleDevLogin provisions or signs in a user from a bare email. Registered
// only when dev login is enabled in config.
//
// HTTP: POST /auth/dev  {"email": "...", "displayName": "..."}
func (h *AuthHandler) HandleDevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.devLogin {
		writeError(w, apperror.Forbidden("dev login is disabled"))
		return
	}

	var req struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.access.DevSignIn(r.Context(), req.Email, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.issueSession(w, user.ID, auth.RoleMember); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, auth.SessionCookie)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
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

func (h *AuthHandler) issueSession(w http.ResponseWriter, subject, role string) error {
	token, err := h.tokens.Generate(subject, role)
	if err != nil {
		return err
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
	return nil
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func isForbidden(err error) bool {
	return errors.Is(err, apperror.ErrForbidden)
}
