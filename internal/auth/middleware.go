package auth

import (
	"context"
	"net/http"
)

// SessionCookie is the name of the HttpOnly cookie carrying the session JWT.
const SessionCookie = "session"

// Principal is the authenticated caller attached to a request: either a
// member (UserID set) or the admin console operator (Admin true). It is
// explicit per-request state, never a global flag.
type Principal struct {
	UserID string
	Admin  bool
}

// contextKey is unexported so only this package can read or write the
// principal in a context — plain string keys would collide across packages.
type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a context carrying the principal. Exposed for tests
// that call handlers directly without the middleware.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the principal placed by the middleware.
// ok is false for anonymous requests.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// RequireMember admits only requests with a valid member session. 401
// otherwise.
func RequireMember(tokens *TokenService) func(http.Handler) http.Handler {
	return requireRole(tokens, func(p Principal) bool { return !p.Admin })
}

// RequireAdmin admits only requests with a valid admin session. 401
// otherwise.
func RequireAdmin(tokens *TokenService) func(http.Handler) http.Handler {
	return requireRole(tokens, func(p Principal) bool { return p.Admin })
}

// RequirePortal admits either principal — member or admin. Used on routes
// like the leaderboard that both can see.
func RequirePortal(tokens *TokenService) func(http.Handler) http.Handler {
	return requireRole(tokens, func(Principal) bool { return true })
}

func requireRole(tokens *TokenService, allowed func(Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := extractPrincipal(r, tokens)
			if err != nil || !allowed(p) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// extractPrincipal reads the session cookie and validates the token.
func extractPrincipal(r *http.Request, tokens *TokenService) (Principal, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return Principal{}, err
	}

	subject, role, err := tokens.Validate(cookie.Value)
	if err != nil {
		return Principal{}, err
	}

	if role == RoleAdmin {
		return Principal{Admin: true}, nil
	}
	return Principal{UserID: subject}, nil
}
