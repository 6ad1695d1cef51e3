package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type stubTokenVerifier struct {
	token    *firebaseauth.Token
	err      error
	received string
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	s.received = idToken
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func TestRequireFirebaseAuth_AllowsStaffToken(t *testing.T) {
	verifier := &stubTokenVerifier{
		token: &firebaseauth.Token{
			UID: "uid-123",
			Claims: map[string]interface{}{
				"role":  []interface{}{"Staff", "staff"},
				"email": "ops@example.com",
			},
		},
	}

	called := false
	handler := NewAuthenticator(verifier).RequireFirebaseAuth(RoleAdmin, RoleStaff)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("expected identity in context")
		}
		if identity.UID != "uid-123" {
			t.Fatalf("unexpected uid: %s", identity.UID)
		}
		if len(identity.Roles) != 1 || !identity.HasRole(RoleStaff) {
			t.Fatalf("expected deduplicated staff role, got %v", identity.Roles)
		}
		if identity.Actor() != "ops@example.com" {
			t.Fatalf("expected email actor, got %s", identity.Actor())
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/vouchers", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if verifier.received != "token-abc" {
		t.Fatalf("expected verifier to receive token, got %q", verifier.received)
	}
}

func TestRequireFirebaseAuth_Rejections(t *testing.T) {
	cases := []struct {
		name       string
		header     string
		verifier   *stubTokenVerifier
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing header",
			verifier:   &stubTokenVerifier{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthenticated",
		},
		{
			name:       "wrong scheme",
			header:     "Basic abc",
			verifier:   &stubTokenVerifier{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthenticated",
		},
		{
			name:       "verification failure",
			header:     "Bearer bad",
			verifier:   &stubTokenVerifier{err: errors.New("boom")},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_token",
		},
		{
			name:   "user role only",
			header: "Bearer ok",
			verifier: &stubTokenVerifier{token: &firebaseauth.Token{
				UID:    "uid-1",
				Claims: map[string]interface{}{},
			}},
			wantStatus: http.StatusForbidden,
			wantCode:   "insufficient_role",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewAuthenticator(tc.verifier).RequireFirebaseAuth(RoleAdmin, RoleStaff)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatalf("handler must not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] != tc.wantCode {
				t.Fatalf("expected error %s, got %v", tc.wantCode, body["error"])
			}
		})
	}
}

func TestRolesFromClaim(t *testing.T) {
	if roles := rolesFromClaim("Admin"); len(roles) != 1 || roles[0] != RoleAdmin {
		t.Fatalf("unexpected roles from string: %v", roles)
	}
	if roles := rolesFromClaim(map[string]any{"admin": true, "staff": false}); len(roles) != 1 || roles[0] != RoleAdmin {
		t.Fatalf("unexpected roles from map: %v", roles)
	}
	if roles := rolesFromClaim(42); len(roles) != 0 {
		t.Fatalf("expected no roles, got %v", roles)
	}
}
