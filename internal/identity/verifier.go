package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	jwksDefaultTimeout = 10 * time.Second
	jwksRefreshTTL     = 15 * time.Minute
)

// TokenVerifier resolves an opaque bearer credential to session claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*SessionClaims, error)
}

// VerifierOptions configures a Verifier.
type VerifierOptions struct {
	Issuer     string
	JWKSURL    string
	HTTPClient *http.Client
}

// Verifier validates RS256 session tokens against the identity provider's
// published JWKS. Keys are cached and refreshed when an unknown key id is
// seen or the cache goes stale.
type Verifier struct {
	issuer  string
	jwksURL string
	client  *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewVerifier constructs a Verifier. Issuer and JWKS URL are both required.
func NewVerifier(opts VerifierOptions) (*Verifier, error) {
	if strings.TrimSpace(opts.Issuer) == "" {
		return nil, errors.New("identity issuer is required")
	}
	if strings.TrimSpace(opts.JWKSURL) == "" {
		return nil, errors.New("jwks url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: jwksDefaultTimeout}
	}
	return &Verifier{
		issuer:  strings.TrimRight(opts.Issuer, "/"),
		jwksURL: opts.JWKSURL,
		client:  client,
		keys:    map[string]*rsa.PublicKey{},
	}, nil
}

// Verify parses and validates the token, returning its claims on success.
// Every failure mode (malformed token, bad signature, expired, provider
// unreachable) surfaces as a plain error so the caller can map them all to
// a single unauthorized response.
func (v *Verifier) Verify(ctx context.Context, token string) (*SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("empty token")
	}
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keyFor(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify session token: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("session token missing subject")
	}
	return claims, nil
}

func (v *Verifier) keyFor(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	stale := time.Since(v.fetchedAt) > jwksRefreshTTL
	v.mu.RUnlock()
	if ok && !stale {
		return key, nil
	}
	if err := v.refresh(ctx); err != nil {
		return nil, err
	}
	v.mu.RLock()
	key, ok = v.keys[kid]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no key for kid %q", kid)
	}
	return key, nil
}

type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (v *Verifier) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, jwksDefaultTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("jwks request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}
	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("jwks contains no usable keys")
	}
	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()
	return nil
}

func parseRSAKey(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

var _ TokenVerifier = (*Verifier)(nil)
