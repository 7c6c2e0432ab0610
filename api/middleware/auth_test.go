package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kabidey/privity-sub003/pkg/auth"
	"github.com/kabidey/privity-sub003/pkg/config"
	"github.com/kabidey/privity-sub003/pkg/enums"
)

func testAuthJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "privity", ExpirationMinutes: 60}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testAuthJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testAuthJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsCallerFromValidToken(t *testing.T) {
	cfg := testAuthJWTConfig()
	userID := uuid.New()
	token := mintTestToken(t, cfg, userID, enums.MemberRolePEDesk, enums.CapabilityApproveBookings)

	var captured struct {
		user   string
		role   string
		caller auth.Caller
	}
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		captured.caller = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user != userID.String() {
		t.Fatalf("expected user %s in context, got %q", userID, captured.user)
	}
	if captured.role != string(enums.MemberRolePEDesk) {
		t.Fatalf("expected role pe_desk got %s", captured.role)
	}
	if !captured.caller.Can(enums.CapabilityApproveBookings) {
		t.Fatal("expected caller to hold approve_bookings")
	}
	if captured.caller.Can(enums.CapabilityDeleteBookings) {
		t.Fatal("did not expect caller to hold delete_bookings")
	}
}

func TestAuthRejectsTokenWithWrongIssuer(t *testing.T) {
	mintCfg := testAuthJWTConfig()
	mintCfg.Issuer = "someone-else"
	token := mintTestToken(t, mintCfg, uuid.New(), enums.MemberRoleEmployee)

	handler := Auth(testAuthJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, role enums.MemberRole, capabilities ...enums.Capability) string {
	t.Helper()
	payload := auth.AccessTokenPayload{
		UserID:       userID,
		Role:         role,
		Capabilities: capabilities,
	}
	token, err := auth.MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
