// README: Router-level tests for auth boundaries and request validation.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	httptransport "soko/internal/http"
	"soko/internal/infra"
	"soko/internal/modules/deliveryjob"
	"soko/internal/modules/dispute"
	"soko/internal/modules/kyc"
	"soko/internal/modules/payment"
)

// stubVerifier is a test double for infra.TokenVerifier.
type stubVerifier struct {
	token *infra.Token
	err   error
}

func (s *stubVerifier) Verify(context.Context, string) (*infra.Token, error) {
	return s.token, s.err
}

// buildTestRouter wires the full router with zero-value services. Every case
// below is rejected by middleware or request validation before any service
// touches its store.
func buildTestRouter(verifier infra.TokenVerifier) http.Handler {
	gin.SetMode(gin.TestMode)
	return httptransport.NewRouter(
		httptransport.RouterConfig{Verifier: verifier, WebhookSecret: "hook-secret"},
		payment.NewService(nil),
		deliveryjob.NewService(nil, nil, nil),
		dispute.NewService(nil),
		kyc.NewService(nil),
	)
}

func adminVerifier() *stubVerifier {
	return &stubVerifier{token: &infra.Token{UID: "admin1", Role: "ADMIN"}}
}

func doRequest(r http.Handler, method, path string, body any, authHeader string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := buildTestRouter(adminVerifier())
	w := doRequest(r, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAdmin_MissingToken(t *testing.T) {
	r := buildTestRouter(adminVerifier())
	w := doRequest(r, http.MethodGet, "/admin/payments", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAdmin_InvalidToken(t *testing.T) {
	r := buildTestRouter(&stubVerifier{err: errors.New("expired")})
	w := doRequest(r, http.MethodGet, "/admin/payments", nil, "Bearer badtoken")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAdmin_WrongRole(t *testing.T) {
	r := buildTestRouter(&stubVerifier{token: &infra.Token{UID: "ag1", Role: "AGENCY"}})
	w := doRequest(r, http.MethodGet, "/admin/payments", nil, "Bearer sometoken")
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestAgencyRoutes_RejectAdmin(t *testing.T) {
	r := buildTestRouter(adminVerifier())
	w := doRequest(r, http.MethodPatch, "/agency/delivery-jobs/job1/accept", nil, "Bearer sometoken")
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestAssign_MissingAgencyID(t *testing.T) {
	r := buildTestRouter(adminVerifier())
	w := doRequest(r, http.MethodPatch, "/admin/delivery-jobs/job1/assign", map[string]any{}, "Bearer sometoken")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestKYCReject_MissingReason(t *testing.T) {
	r := buildTestRouter(adminVerifier())
	w := doRequest(r, http.MethodPatch, "/admin/kyc/sub1/reject", map[string]any{}, "Bearer sometoken")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestWebhook_WrongSecret(t *testing.T) {
	r := buildTestRouter(adminVerifier())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments",
		bytes.NewBufferString(`{"transaction_id":"t1","status":"SUCCESS"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", "wrong")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestWebhook_MissingFields(t *testing.T) {
	r := buildTestRouter(adminVerifier())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", "hook-secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
