package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const ledgerDefaultTimeout = 10 * time.Second

// UsageLedger is the narrow contract over the per-user free_usage counter.
// The counter lives outside this service, in the identity provider's user
// metadata. Increment has fetch-add semantics at this interface; remote
// implementations that cannot guarantee atomicity must document that.
type UsageLedger interface {
	// Get returns the current counter and whether one exists for the user.
	Get(ctx context.Context, userID string) (int, bool, error)
	// Reset durably writes a zero counter for the user.
	Reset(ctx context.Context, userID string) error
	// Increment advances the counter by one and returns the new value.
	Increment(ctx context.Context, userID string) (int, error)
}

// MetadataLedgerOptions configures a MetadataLedger.
type MetadataLedgerOptions struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

// MetadataLedger stores the free_usage counter in the identity provider's
// private user metadata over its management REST API. Increment performs a
// read-modify-write: the provider offers no compare-and-swap on metadata,
// so two racing increments for the same user can collapse into one.
type MetadataLedger struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewMetadataLedger constructs a MetadataLedger.
func NewMetadataLedger(opts MetadataLedgerOptions) (*MetadataLedger, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("ledger base url is required")
	}
	if strings.TrimSpace(opts.SecretKey) == "" {
		return nil, errors.New("ledger secret key is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: ledgerDefaultTimeout}
	}
	return &MetadataLedger{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		secretKey: opts.SecretKey,
		client:    client,
	}, nil
}

type userMetadataResponse struct {
	PrivateMetadata map[string]json.RawMessage `json:"private_metadata"`
}

// Get fetches the user's free_usage counter from private metadata.
func (l *MetadataLedger) Get(ctx context.Context, userID string) (int, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, false, errors.New("user id is required")
	}
	endpoint := fmt.Sprintf("%s/users/%s", l.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, false, fmt.Errorf("ledger get: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.secretKey)
	resp, err := l.client.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("ledger get: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return 0, false, fmt.Errorf("ledger get: status %d", resp.StatusCode)
	}
	var out userMetadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, false, fmt.Errorf("ledger get: decode: %w", err)
	}
	raw, ok := out.PrivateMetadata["free_usage"]
	if !ok {
		return 0, false, nil
	}
	var usage int
	if err := json.Unmarshal(raw, &usage); err != nil {
		return 0, false, nil
	}
	if usage < 0 {
		usage = 0
	}
	return usage, true, nil
}

// Reset writes a zero counter for the user.
func (l *MetadataLedger) Reset(ctx context.Context, userID string) error {
	return l.write(ctx, userID, 0)
}

// Increment reads the current counter and writes back current+1. A missing
// counter counts as zero.
func (l *MetadataLedger) Increment(ctx context.Context, userID string) (int, error) {
	current, _, err := l.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := l.write(ctx, userID, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (l *MetadataLedger) write(ctx context.Context, userID string, value int) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}
	payload := map[string]any{
		"private_metadata": map[string]any{"free_usage": value},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ledger write: %w", err)
	}
	endpoint := fmt.Sprintf("%s/users/%s/metadata", l.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger write: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.secretKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger write: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ledger write: status %d", resp.StatusCode)
	}
	return nil
}

var _ UsageLedger = (*MetadataLedger)(nil)

// MemoryLedger is an in-process UsageLedger with truly atomic increments.
// It backs unit tests and local development without provider credentials.
type MemoryLedger struct {
	mu     sync.Mutex
	usage  map[string]int
	exists map[string]bool
}

// NewMemoryLedger constructs an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{usage: map[string]int{}, exists: map[string]bool{}}
}

// Get implements UsageLedger.
func (m *MemoryLedger) Get(_ context.Context, userID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage[userID], m.exists[userID], nil
}

// Reset implements UsageLedger.
func (m *MemoryLedger) Reset(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[userID] = 0
	m.exists[userID] = true
	return nil
}

// Increment implements UsageLedger.
func (m *MemoryLedger) Increment(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[userID]++
	m.exists[userID] = true
	return m.usage[userID], nil
}

var _ UsageLedger = (*MemoryLedger)(nil)
