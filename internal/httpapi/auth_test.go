package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wdms/delivery-service/internal/session"
)

func gatedHandler(t *testing.T) (http.Handler, *session.Codec) {
	t.Helper()
	h, codec := newTestHandler(t, fakeStore{})
	return SessionGate(codec, h.Routes()), codec
}

func TestGateRedirectsWithoutCookie(t *testing.T) {
	gate, _ := gatedHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/m/dashboard", nil)
	resp := httptest.NewRecorder()
	gate.ServeHTTP(resp, req)

	if resp.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", resp.Code)
	}
	if location := resp.Header().Get("Location"); location != "/m/login" {
		t.Fatalf("expected redirect to /m/login, got %q", location)
	}
}

func TestGateClearsInvalidCookieOnRedirect(t *testing.T) {
	gate, _ := gatedHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/m/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tampered-or-expired"})
	resp := httptest.NewRecorder()
	gate.ServeHTTP(resp, req)

	if resp.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", resp.Code)
	}
	if location := resp.Header().Get("Location"); location != "/m/login" {
		t.Fatalf("expected redirect to /m/login, got %q", location)
	}
	cookie := sessionCookieFrom(resp)
	if cookie == nil {
		t.Fatal("expected the invalid cookie to be cleared on the redirect")
	}
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("expected expiring cookie, got %+v", cookie)
	}
}

func TestGateAllowsValidSession(t *testing.T) {
	gate, codec := gatedHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/m/dashboard", nil)
	req.AddCookie(managerCookie(t, codec))
	resp := httptest.NewRecorder()
	gate.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "mgr1") {
		t.Fatal("dashboard should render the session's username")
	}
}

func TestGateRedirectsAuthenticatedAwayFromLogin(t *testing.T) {
	gate, codec := gatedHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/m/login", nil)
	req.AddCookie(managerCookie(t, codec))
	resp := httptest.NewRecorder()
	gate.ServeHTTP(resp, req)

	if resp.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", resp.Code)
	}
	if location := resp.Header().Get("Location"); location != "/m/dashboard" {
		t.Fatalf("expected redirect to /m/dashboard, got %q", location)
	}
}

func TestGateLetsInvalidSessionReachLogin(t *testing.T) {
	gate, _ := gatedHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/m/login", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "expired"})
	resp := httptest.NewRecorder()
	gate.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestGateIgnoresPathsOutsideManagerArea(t *testing.T) {
	gate, _ := gatedHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	gate.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}
