package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"inkwell/internal/domain"
	"inkwell/internal/identity"
)

type fakeVerifier struct {
	verify func(ctx context.Context, token string) (*identity.SessionClaims, error)
}

func (f fakeVerifier) Verify(ctx context.Context, token string) (*identity.SessionClaims, error) {
	if f.verify != nil {
		return f.verify(ctx, token)
	}
	return nil, errors.New("verify not implemented")
}

type trackingLedger struct {
	*identity.MemoryLedger
	getErr    error
	resetErr  error
	gets      int
	resets    int
	increment int
}

func (l *trackingLedger) Get(ctx context.Context, userID string) (int, bool, error) {
	l.gets++
	if l.getErr != nil {
		return 0, false, l.getErr
	}
	return l.MemoryLedger.Get(ctx, userID)
}

func (l *trackingLedger) Reset(ctx context.Context, userID string) error {
	l.resets++
	if l.resetErr != nil {
		return l.resetErr
	}
	return l.MemoryLedger.Reset(ctx, userID)
}

func (l *trackingLedger) Increment(ctx context.Context, userID string) (int, error) {
	l.increment++
	return l.MemoryLedger.Increment(ctx, userID)
}

func claimsFor(userID string, plans ...string) *identity.SessionClaims {
	return &identity.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		Plans:            plans,
	}
}

func staticVerifier(claims *identity.SessionClaims) fakeVerifier {
	return fakeVerifier{verify: func(ctx context.Context, token string) (*identity.SessionClaims, error) {
		return claims, nil
	}}
}

func runAuth(t *testing.T, verifier identity.TokenVerifier, ledger identity.UsageLedger, header string) (*httptest.ResponseRecorder, domain.AuthContext, bool) {
	t.Helper()
	var captured domain.AuthContext
	var reached bool
	handler := Auth(verifier, ledger, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, reached = AuthFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate-article", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, captured, reached
}

func assertUnauthorized(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Message != "unauthorized" {
		t.Fatalf("body = %+v, want {false unauthorized}", body)
	}
}

func TestAuthMissingOrMalformedHeader(t *testing.T) {
	ledger := &trackingLedger{MemoryLedger: identity.NewMemoryLedger()}
	verifier := staticVerifier(claimsFor("user_1"))

	for _, header := range []string{"", "Token abc", "Bearer ", "bearer-without-space"} {
		rec, _, reached := runAuth(t, verifier, ledger, header)
		assertUnauthorized(t, rec)
		if reached {
			t.Fatalf("handler reached with header %q", header)
		}
	}
}

func TestAuthVerifierFailure(t *testing.T) {
	ledger := &trackingLedger{MemoryLedger: identity.NewMemoryLedger()}
	verifier := fakeVerifier{verify: func(ctx context.Context, token string) (*identity.SessionClaims, error) {
		return nil, errors.New("provider down")
	}}
	rec, _, reached := runAuth(t, verifier, ledger, "Bearer sess_abc")
	assertUnauthorized(t, rec)
	if reached {
		t.Fatalf("handler reached after verification failure")
	}
}

func TestAuthProPlanSkipsLedger(t *testing.T) {
	ledger := &trackingLedger{MemoryLedger: identity.NewMemoryLedger(), getErr: errors.New("must not be called")}
	rec, auth, reached := runAuth(t, staticVerifier(claimsFor("user_1", "pro")), ledger, "Bearer sess_abc")
	if rec.Code != http.StatusOK || !reached {
		t.Fatalf("status = %d, reached = %v", rec.Code, reached)
	}
	if auth.Plan != domain.PlanPro || auth.UserID != "user_1" {
		t.Fatalf("auth = %+v", auth)
	}
	if ledger.gets != 0 || ledger.resets != 0 || ledger.increment != 0 {
		t.Fatalf("ledger touched for pro principal: %+v", ledger)
	}
}

func TestAuthFreePlanFirstTouchInitializesCounter(t *testing.T) {
	ledger := &trackingLedger{MemoryLedger: identity.NewMemoryLedger()}
	rec, auth, reached := runAuth(t, staticVerifier(claimsFor("user_1")), ledger, "Bearer sess_abc")
	if rec.Code != http.StatusOK || !reached {
		t.Fatalf("status = %d, reached = %v", rec.Code, reached)
	}
	if auth.Plan != domain.PlanFree || auth.FreeUsage != 0 {
		t.Fatalf("auth = %+v, want free plan with zero usage", auth)
	}
	if ledger.resets != 1 {
		t.Fatalf("resets = %d, want 1", ledger.resets)
	}
	// The zero must be durable, not just local.
	usage, found, err := ledger.MemoryLedger.Get(context.Background(), "user_1")
	if err != nil || !found || usage != 0 {
		t.Fatalf("ledger state = (%d, %v, %v), want (0, true, nil)", usage, found, err)
	}
}

func TestAuthFreePlanLoadsExistingCounter(t *testing.T) {
	ledger := &trackingLedger{MemoryLedger: identity.NewMemoryLedger()}
	for i := 0; i < 7; i++ {
		if _, err := ledger.MemoryLedger.Increment(context.Background(), "user_1"); err != nil {
			t.Fatalf("seed ledger: %v", err)
		}
	}
	_, auth, reached := runAuth(t, staticVerifier(claimsFor("user_1")), ledger, "Bearer sess_abc")
	if !reached {
		t.Fatalf("handler not reached")
	}
	if auth.FreeUsage != 7 {
		t.Fatalf("FreeUsage = %d, want 7", auth.FreeUsage)
	}
	if ledger.resets != 0 {
		t.Fatalf("resets = %d, want 0 for existing counter", ledger.resets)
	}
}

func TestAuthLedgerFailuresAreUnauthorized(t *testing.T) {
	getFail := &trackingLedger{MemoryLedger: identity.NewMemoryLedger(), getErr: errors.New("ledger down")}
	rec, _, reached := runAuth(t, staticVerifier(claimsFor("user_1")), getFail, "Bearer sess_abc")
	assertUnauthorized(t, rec)
	if reached {
		t.Fatalf("handler reached after ledger read failure")
	}

	resetFail := &trackingLedger{MemoryLedger: identity.NewMemoryLedger(), resetErr: errors.New("ledger down")}
	rec, _, reached = runAuth(t, staticVerifier(claimsFor("user_1")), resetFail, "Bearer sess_abc")
	assertUnauthorized(t, rec)
	if reached {
		t.Fatalf("handler reached after ledger init failure")
	}
}
