package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReadBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"missing header", "", ""},
		{"bearer token", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer with padding", "  Bearer   abc  ", "abc"},
		{"basic auth ignored", "Basic dXNlcjpwYXNz", ""},
		{"bare token ignored", "abc.def.ghi", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if got := readBearerToken(req); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	h := NewHandler(nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name       string
		user       *User
		required   []string
		wantStatus int
	}{
		{"no user", nil, []string{"ADMIN"}, http.StatusUnauthorized},
		{"wrong role", &User{Roles: []string{"STUDENT"}}, []string{"ADMIN"}, http.StatusForbidden},
		{"matching role", &User{Roles: []string{"TEACHER"}}, []string{"TEACHER", "ADMIN"}, http.StatusNoContent},
		{"second of several roles", &User{Roles: []string{"STUDENT", "ADMIN"}}, []string{"ADMIN"}, http.StatusNoContent},
		{"lowercase requirement still matches", &User{Roles: []string{"ADMIN"}}, []string{"admin"}, http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.user != nil {
				req = req.WithContext(ContextWithUser(req.Context(), tc.user))
			}
			rec := httptest.NewRecorder()
			h.RequireRoles(tc.required...)(next).ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestCurrentUserRoundTrip(t *testing.T) {
	u := &User{ID: 5, Username: "sara", Roles: []string{"STUDENT"}}
	ctx := ContextWithUser(httptest.NewRequest(http.MethodGet, "/", nil).Context(), u)

	got, ok := CurrentUser(ctx)
	if !ok {
		t.Fatalf("expected user in context")
	}
	if got.ID != 5 || got.Username != "sara" {
		t.Fatalf("unexpected user: %+v", got)
	}
}
