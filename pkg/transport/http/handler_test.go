package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	gohttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Halvra/cas/pkg/api"
	"github.com/Halvra/cas/pkg/audit"
	"github.com/Halvra/cas/pkg/auth"
	"github.com/Halvra/cas/pkg/failover"
	"github.com/Halvra/cas/pkg/mfa"
)

// fakeVerifier accepts token "123456" for any principal.
type fakeVerifier struct {
	alive     bool
	withAudit bool
	events    []audit.Event
	verifyErr error

	gotLimit  int
	gotBefore time.Time
}

func (f *fakeVerifier) Verify(_ context.Context, p *auth.Identity, token string) (*mfa.Verification, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %w", mfa.ErrAuthenticationFailed, mfa.ErrMissingPrincipal)
	}
	if token != "123456" {
		return nil, fmt.Errorf("%w: %w", mfa.ErrAuthenticationFailed, failover.ErrRejected)
	}
	return &mfa.Verification{
		Subject:    p.Subject,
		Server:     "primary",
		Attributes: map[string]any{"Reply-Message": []string{"welcome"}},
	}, nil
}

func (f *fakeVerifier) Ping(context.Context) bool { return f.alive }
func (f *fakeVerifier) Servers() []string         { return []string{"primary", "backup"} }
func (f *fakeVerifier) HasAudit() bool            { return f.withAudit }

func (f *fakeVerifier) Events(_ context.Context, p *auth.Identity, limit int, before time.Time) (*audit.EventList, error) {
	f.gotLimit, f.gotBefore = limit, before
	return &audit.EventList{Events: f.events, HasMore: true}, nil
}

// asUser injects an identity the way auth.Middleware does.
func asUser(subject string) func(gohttp.Handler) gohttp.Handler {
	return func(next gohttp.Handler) gohttp.Handler {
		return gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
			next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), &auth.Identity{Subject: subject})))
		})
	}
}

func doRequest(h gohttp.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *api.APIError {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return resp.Error
}

func TestVerify_Success(t *testing.T) {
	h := NewHandler(&fakeVerifier{}, WithAuth(asUser("alice")))

	rec := doRequest(h, "POST", "/v1/mfa/verify", `{"token":"123456"}`)
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body)
	}

	var got api.Verification
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.Object != "mfa.verification" || got.Subject != "alice" || got.Server != "primary" {
		t.Errorf("verification = %+v", got)
	}
	if got.Attributes["Reply-Message"] == nil {
		t.Errorf("attributes = %v, want Reply-Message", got.Attributes)
	}
}

func TestVerify_FailureIsGeneric(t *testing.T) {
	h := NewHandler(&fakeVerifier{}, WithAuth(asUser("alice")))

	rec := doRequest(h, "POST", "/v1/mfa/verify", `{"token":"000000"}`)
	if rec.Code != gohttp.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	apiErr := decodeError(t, rec)
	if apiErr.Type != api.ErrorTypeAuthenticationFailed || apiErr.Message != "authentication failed" {
		t.Errorf("error = %+v", apiErr)
	}
}

func TestVerify_NoPrincipal(t *testing.T) {
	h := NewHandler(&fakeVerifier{})

	rec := doRequest(h, "POST", "/v1/mfa/verify", `{"token":"123456"}`)
	if rec.Code != gohttp.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestVerify_UnexpectedErrorIs500(t *testing.T) {
	h := NewHandler(&fakeVerifier{verifyErr: errors.New("boom")}, WithAuth(asUser("alice")))

	rec := doRequest(h, "POST", "/v1/mfa/verify", `{"token":"123456"}`)
	if rec.Code != gohttp.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestVerify_BadRequests(t *testing.T) {
	h := NewHandler(&fakeVerifier{}, WithAuth(asUser("alice")), WithHandlerMaxBodySize(64))

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"invalid json", "application/json", `{"token":`, gohttp.StatusBadRequest},
		{"empty token", "application/json", `{"token":""}`, gohttp.StatusBadRequest},
		{"wrong content type", "text/plain", `{"token":"123456"}`, gohttp.StatusUnsupportedMediaType},
		{"too large", "application/json", `{"token":"` + strings.Repeat("1", 100) + `"}`, gohttp.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/mfa/verify", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body=%s", rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}
}

func TestVerify_MethodNotAllowed(t *testing.T) {
	h := NewHandler(&fakeVerifier{})

	rec := doRequest(h, "GET", "/v1/mfa/verify", "")
	if rec.Code != gohttp.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		alive      bool
		wantStatus int
		wantState  string
	}{
		{true, gohttp.StatusOK, "ok"},
		{false, gohttp.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		h := NewHandler(&fakeVerifier{alive: tt.alive})
		rec := doRequest(h, "GET", "/readyz", "")

		if rec.Code != tt.wantStatus {
			t.Errorf("alive=%v: status = %d, want %d", tt.alive, rec.Code, tt.wantStatus)
		}
		var got api.Readiness
		json.NewDecoder(rec.Body).Decode(&got)
		if got.Status != tt.wantState || len(got.Servers) != 2 {
			t.Errorf("alive=%v: readiness = %+v", tt.alive, got)
		}
	}
}

func TestHealth(t *testing.T) {
	rec := doRequest(NewHandler(&fakeVerifier{}), "GET", "/healthz", "")
	if rec.Code != gohttp.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestEvents_RegisteredOnlyWithAudit(t *testing.T) {
	rec := doRequest(NewHandler(&fakeVerifier{}, WithAuth(asUser("alice"))), "GET", "/v1/mfa/events", "")
	if rec.Code != gohttp.StatusNotFound {
		t.Errorf("without audit: status = %d, want 404", rec.Code)
	}
}

func TestEvents_List(t *testing.T) {
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	fv := &fakeVerifier{
		withAudit: true,
		events: []audit.Event{
			{ID: "mfa_1", Subject: "alice", Status: "success", Server: "primary", Contacted: 1, CreatedAt: created},
		},
	}
	h := NewHandler(fv, WithAuth(asUser("alice")))

	rec := doRequest(h, "GET", "/v1/mfa/events?limit=5&before=2026-06-01T00:00:00Z", "")
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body)
	}

	var got api.EventList
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.Object != "list" || !got.HasMore || len(got.Data) != 1 {
		t.Fatalf("list = %+v", got)
	}
	if got.Data[0].ID != "mfa_1" || !got.Data[0].CreatedAt.Equal(created) {
		t.Errorf("event = %+v", got.Data[0])
	}
	if fv.gotLimit != 5 {
		t.Errorf("limit = %d, want 5", fv.gotLimit)
	}
	if !fv.gotBefore.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("before = %s", fv.gotBefore)
	}
}

func TestEvents_BadQuery(t *testing.T) {
	h := NewHandler(&fakeVerifier{withAudit: true}, WithAuth(asUser("alice")))

	for _, q := range []string{"limit=0", "limit=abc", "before=yesterday"} {
		rec := doRequest(h, "GET", "/v1/mfa/events?"+q, "")
		if rec.Code != gohttp.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.Write([]byte("# metrics\n"))
	})
	h := NewHandler(&fakeVerifier{}, WithMetrics("/metrics", metrics))

	rec := doRequest(h, "GET", "/metrics", "")
	if rec.Code != gohttp.StatusOK || rec.Body.String() != "# metrics\n" {
		t.Errorf("metrics = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthBypass(t *testing.T) {
	chain := &auth.Chain{DefaultDecision: auth.No}
	h := NewHandler(&fakeVerifier{alive: true},
		WithAuth(auth.Middleware(chain, nil, auth.DefaultBypassEndpoints)))

	if rec := doRequest(h, "GET", "/readyz", ""); rec.Code != gohttp.StatusOK {
		t.Errorf("readyz behind auth: status = %d, want 200", rec.Code)
	}
	if rec := doRequest(h, "POST", "/v1/mfa/verify", `{"token":"123456"}`); rec.Code != gohttp.StatusUnauthorized {
		t.Errorf("verify without credentials: status = %d, want 401", rec.Code)
	}
}
