package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func sessionRequest(t *testing.T, svc *TokenService, subject, role string) *http.Request {
	t.Helper()
	token, err := svc.Generate(subject, role)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	return req
}

func TestRequireMember(t *testing.T) {
	svc := newTestTokenService(t)

	var seen Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := RequireMember(svc)(next)

	// No cookie.
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no cookie: status = %d, want 401", rec.Code)
	}

	// Garbage cookie.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "garbage"})
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}

	// Member session passes and carries the principal.
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, sessionRequest(t, svc, "user-7", RoleMember))
	if rec.Code != http.StatusOK {
		t.Fatalf("member: status = %d, want 200", rec.Code)
	}
	if seen.UserID != "user-7" || seen.Admin {
		t.Errorf("principal = %+v", seen)
	}

	// Admin session is not a member.
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, sessionRequest(t, svc, "admin", RoleAdmin))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("admin on member route: status = %d, want 401", rec.Code)
	}
}

func TestRejectionBodyIsJSON(t *testing.T) {
	svc := newTestTokenService(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := RequireMember(svc)(next)

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Error != "unauthorized" || body.Message == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestTokenService(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := RequireAdmin(svc)(next)

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, sessionRequest(t, svc, "admin", RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Errorf("admin: status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, sessionRequest(t, svc, "user-7", RoleMember))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("member on admin route: status = %d, want 401", rec.Code)
	}
}

func TestRequirePortalAdmitsBoth(t *testing.T) {
	svc := newTestTokenService(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := RequirePortal(svc)(next)

	for _, role := range []string{RoleMember, RoleAdmin} {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, sessionRequest(t, svc, "subject", role))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", role, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", rec.Code)
	}
}
