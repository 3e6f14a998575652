package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

const testIssuer = "https://sessions.example.test"

func newSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey() error: %v", err)
	}
	return key
}

func jwksFor(t *testing.T, kid string, key *rsa.PrivateKey) []byte {
	t.Helper()
	doc := jwksDocument{Keys: []jwksKey{{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString([]byte{1, 0, 1}),
	}}}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return raw
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims *SessionClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func jwksClient(body []byte) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(string(body))),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil
	})}
}

func baseClaims(issuer string) *SessionClaims {
	return &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_123",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Plans: []string{"pro"},
	}
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	key := newSigningKey(t)
	v, err := NewVerifier(VerifierOptions{
		Issuer:     testIssuer,
		JWKSURL:    testIssuer + "/.well-known/jwks.json",
		HTTPClient: jwksClient(jwksFor(t, "key-1", key)),
	})
	if err != nil {
		t.Fatalf("NewVerifier() error: %v", err)
	}
	token := signToken(t, key, "key-1", baseClaims(testIssuer))

	claims, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if claims.UserID() != "user_123" {
		t.Errorf("UserID() = %q, want %q", claims.UserID(), "user_123")
	}
	if !claims.HasPlan("pro") {
		t.Errorf("HasPlan(pro) = false, want true")
	}
}

func TestVerifierRejectsBadTokens(t *testing.T) {
	key := newSigningKey(t)
	otherKey := newSigningKey(t)
	client := jwksClient(jwksFor(t, "key-1", key))
	v, err := NewVerifier(VerifierOptions{Issuer: testIssuer, JWKSURL: testIssuer + "/jwks", HTTPClient: client})
	if err != nil {
		t.Fatalf("NewVerifier() error: %v", err)
	}

	expired := baseClaims(testIssuer)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := baseClaims("https://evil.example.test")
	noExpiry := baseClaims(testIssuer)
	noExpiry.ExpiresAt = nil

	hsToken := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims(testIssuer))
	hsToken.Header["kid"] = "key-1"
	hsSigned, err := hsToken.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("sign hs256 token: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "garbage token", token: "not.a.jwt"},
		{name: "expired", token: signToken(t, key, "key-1", expired)},
		{name: "missing expiry", token: signToken(t, key, "key-1", noExpiry)},
		{name: "wrong issuer", token: signToken(t, key, "key-1", wrongIssuer)},
		{name: "unknown kid", token: signToken(t, key, "key-9", baseClaims(testIssuer))},
		{name: "wrong key", token: signToken(t, otherKey, "key-1", baseClaims(testIssuer))},
		{name: "hs256 downgrade", token: hsSigned},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), tc.token); err == nil {
				t.Fatalf("Verify() expected error")
			}
		})
	}
}

func TestVerifierProviderUnreachable(t *testing.T) {
	key := newSigningKey(t)
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	v, err := NewVerifier(VerifierOptions{Issuer: testIssuer, JWKSURL: testIssuer + "/jwks", HTTPClient: client})
	if err != nil {
		t.Fatalf("NewVerifier() error: %v", err)
	}
	if _, err := v.Verify(context.Background(), signToken(t, key, "key-1", baseClaims(testIssuer))); err == nil {
		t.Fatalf("Verify() expected error when jwks fetch fails")
	}
}

func TestHasPlan(t *testing.T) {
	tests := []struct {
		name   string
		claims *SessionClaims
		plan   string
		want   bool
	}{
		{name: "nil claims", claims: nil, plan: "pro", want: false},
		{name: "empty membership", claims: &SessionClaims{}, plan: "pro", want: false},
		{name: "plans list", claims: &SessionClaims{Plans: []string{"pro"}}, plan: "pro", want: true},
		{name: "plan string", claims: &SessionClaims{Plan: "pro"}, plan: "pro", want: true},
		{name: "case insensitive", claims: &SessionClaims{Plans: []string{"PRO"}}, plan: "pro", want: true},
		{name: "other plan", claims: &SessionClaims{Plans: []string{"supporter"}}, plan: "pro", want: false},
		{name: "empty name", claims: &SessionClaims{Plans: []string{"pro"}}, plan: "", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.claims.HasPlan(tc.plan); got != tc.want {
				t.Fatalf("HasPlan(%q) = %v, want %v", tc.plan, got, tc.want)
			}
		})
	}
}
