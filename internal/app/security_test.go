package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiterAllow(t *testing.T) {
	l := NewIPRateLimiter(2, time.Minute)
	if !l.Allow("k") || !l.Allow("k") {
		t.Fatalf("first two requests should pass")
	}
	if l.Allow("k") {
		t.Fatalf("third request should be blocked")
	}
	if !l.Allow("other") {
		t.Fatalf("distinct key should have its own bucket")
	}
}

func TestIPRateLimiterWindowReset(t *testing.T) {
	l := NewIPRateLimiter(1, 10*time.Millisecond)
	if !l.Allow("k") {
		t.Fatalf("first request should pass")
	}
	if l.Allow("k") {
		t.Fatalf("second request in window should be blocked")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.Allow("k") {
		t.Fatalf("request after window should pass again")
	}
}

func csrfHandler(enforced bool) http.Handler {
	return CSRFMiddleware(enforced)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		enforced bool
		method   string
		cookie   string
		header   string
		want     int
	}{
		{"matching token passes", true, http.MethodPost, "abc", "abc", http.StatusOK},
		{"missing cookie rejected", true, http.MethodPost, "", "abc", http.StatusForbidden},
		{"mismatched token rejected", true, http.MethodPost, "abc", "xyz", http.StatusForbidden},
		{"missing header rejected", true, http.MethodPost, "abc", "", http.StatusForbidden},
		{"get skips check", true, http.MethodGet, "", "", http.StatusOK},
		{"not enforced passes", false, http.MethodPost, "", "", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/v1/attempts/1/submit", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tc.cookie})
			}
			if tc.header != "" {
				req.Header.Set(csrfHeaderName, tc.header)
			}
			w := httptest.NewRecorder()
			csrfHandler(tc.enforced).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}
