package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

const (
	companyID = "7b8f0a52-3c1e-4f43-9a4f-0d3c2f1e6a10"
	projectID = "0f0c7f3e-86a5-4bb4-9b1f-5f0c7a2d9e21"
	mediaID   = "d7f4c0a1-5e2b-4c9d-8a3f-6b1e2c3d4f50"
)

type fakeChecker struct{ err error }

func (f fakeChecker) PingContext(context.Context) error { return f.err }

// TestHealth は/healthがDB疎通に応じて200/503を返すことを検証する。
func TestHealth(t *testing.T) {
	deps := testDeps()
	deps.HealthChecker = fakeChecker{}
	w := serve(t, NewRouter(deps), http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK || w.Body.String() != "{\"ok\":true}\n" {
		t.Errorf("healthy: status=%d body=%q", w.Code, w.Body.String())
	}

	deps = testDeps()
	deps.HealthChecker = fakeChecker{err: errors.New("connection refused")}
	w = serve(t, NewRouter(deps), http.MethodGet, "/health", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: status=%d, want 503", w.Code)
	}
}

// TestGatedRoutes_RequireToken は変更系と非公開の参照系がトークンなしで401になることを検証する。
func TestGatedRoutes_RequireToken(t *testing.T) {
	router := NewRouter(testDeps())

	tests := []struct {
		method, path string
	}{
		{http.MethodGet, "/auth/me"},
		{http.MethodGet, "/users/me/profile"},
		{http.MethodPatch, "/users/me/profile"},
		{http.MethodGet, "/users/me/media"},
		{http.MethodGet, "/companies/mycompanies"},
		{http.MethodPost, "/companies"},
		{http.MethodPatch, "/companies/" + companyID},
		{http.MethodDelete, "/companies/" + companyID},
		{http.MethodPost, "/companies/" + companyID + "/users"},
		{http.MethodGet, "/companies/" + companyID + "/media"},
		{http.MethodGet, "/companies/" + companyID + "/documents"},
		{http.MethodGet, "/projects/myprojects"},
		{http.MethodPost, "/projects"},
		{http.MethodPatch, "/projects/" + projectID},
		{http.MethodPost, "/projects/" + projectID + "/credits"},
		{http.MethodPost, "/projects/" + projectID + "/media/upload-url"},
		{http.MethodGet, "/projects/" + projectID + "/documents"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(t, router, tt.method, tt.path, "", "{}")
			assertError(t, w, http.StatusUnauthorized, "missing_token")
		})
	}
}

// TestPublicRoutes_NoToken は公開の参照系がトークンなしで応答することを検証する。
func TestPublicRoutes_NoToken(t *testing.T) {
	router := NewRouter(testDeps())

	for _, path := range []string{
		"/users",
		"/companies",
		"/companies/" + companyID + "/users",
		"/projects",
		"/projects/" + projectID + "/credits",
		"/projects/" + projectID + "/media",
	} {
		w := serve(t, router, http.MethodGet, path, "", "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, want 200 (body=%s)", path, w.Code, w.Body.String())
		}
	}
}

func TestInvalidBearerToken(t *testing.T) {
	router := NewRouter(testDeps())
	req := newRequest(http.MethodGet, "/auth/me", "")
	req.Header.Set("Authorization", "Bearer not-a-token")

	w := do(router, req)
	assertError(t, w, http.StatusUnauthorized, "invalid_token")
}

// TestNonUUIDPath_NotFound はUUIDでないパスIDが404になりサービスに届かないことを検証する。
func TestNonUUIDPath_NotFound(t *testing.T) {
	called := false
	deps := testDeps()
	deps.ProjectService = &mockProjectService{
		deleteFn: func(ctx context.Context, actorID, id string) error {
			called = true
			return nil
		},
	}
	router := NewRouter(deps)

	tests := []struct {
		method, path, user, code string
	}{
		{http.MethodGet, "/companies/abc", "", "not_found"},
		{http.MethodGet, "/projects/123", "", "not_found"},
		{http.MethodDelete, "/projects/123", "u1", "not_found"},
		{http.MethodGet, "/users/nobody", "", "not_found"},
		{http.MethodDelete, "/users/me/media/xyz", "u1", "media_not_found"},
		{http.MethodDelete, "/companies/" + companyID + "/documents/zzz", "u1", "document_not_found"},
	}
	for _, tt := range tests {
		w := serve(t, router, tt.method, tt.path, tt.user, "")
		assertError(t, w, http.StatusNotFound, tt.code)
	}
	if called {
		t.Error("service should not be called for a malformed id")
	}
}

func TestUnknownRoute_JSON404(t *testing.T) {
	w := serve(t, NewRouter(testDeps()), http.MethodGet, "/nowhere", "", "")
	assertError(t, w, http.StatusNotFound, "not_found")
}

func TestMethodNotAllowed(t *testing.T) {
	w := serve(t, NewRouter(testDeps()), http.MethodPut, "/companies", "u1", "{}")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestServiceInternalError_Returns500WithoutDetail(t *testing.T) {
	deps := testDeps()
	deps.CompanyService = &mockCompanyService{
		deleteFn: func(ctx context.Context, actorID, id string) error {
			return errors.New("pq: connection reset by peer")
		},
	}

	w := serve(t, NewRouter(deps), http.MethodDelete, "/companies/"+companyID, "u1", "")
	assertError(t, w, http.StatusInternalServerError, "internal_error")
}

func TestSecurityHeadersApplied(t *testing.T) {
	w := serve(t, NewRouter(testDeps()), http.MethodGet, "/companies", "", "")
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}
