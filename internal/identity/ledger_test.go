package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

// metadataServer fakes the provider's user metadata API in memory.
type metadataServer struct {
	mu    sync.Mutex
	users map[string]map[string]any
	fail  bool
}

func newMetadataServer() *metadataServer {
	return &metadataServer{users: map[string]map[string]any{}}
}

func (s *metadataServer) roundTrip(r *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	if r.Header.Get("Authorization") != "Bearer sk_test_123" {
		return &http.Response{StatusCode: http.StatusUnauthorized, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// The configured base URL carries a /v1 path segment; requests must
	// preserve it.
	if len(parts) == 0 || parts[0] != "v1" {
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	parts = parts[1:]
	switch {
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "users":
		meta := s.users[parts[1]]
		if meta == nil {
			meta = map[string]any{}
		}
		body, _ := json.Marshal(map[string]any{"private_metadata": meta})
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(string(body)))}, nil
	case r.Method == http.MethodPatch && len(parts) == 3 && parts[0] == "users" && parts[2] == "metadata":
		var payload struct {
			PrivateMetadata map[string]any `json:"private_metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return &http.Response{StatusCode: http.StatusBadRequest, Body: io.NopCloser(strings.NewReader(""))}, nil
		}
		meta := s.users[parts[1]]
		if meta == nil {
			meta = map[string]any{}
			s.users[parts[1]] = meta
		}
		for k, v := range payload.PrivateMetadata {
			meta[k] = v
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{}`))}, nil
	}
	return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}, nil
}

func newTestLedger(t *testing.T, srv *metadataServer) *MetadataLedger {
	t.Helper()
	ledger, err := NewMetadataLedger(MetadataLedgerOptions{
		BaseURL:    "https://api.identity.test/v1",
		SecretKey:  "sk_test_123",
		HTTPClient: &http.Client{Transport: roundTripFunc(srv.roundTrip)},
	})
	if err != nil {
		t.Fatalf("NewMetadataLedger() error: %v", err)
	}
	return ledger
}

func TestMetadataLedgerGetMissingCounter(t *testing.T) {
	ledger := newTestLedger(t, newMetadataServer())
	usage, ok, err := ledger.Get(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Errorf("Get() reported existing counter for fresh user")
	}
	if usage != 0 {
		t.Errorf("Get() usage = %d, want 0", usage)
	}
}

func TestMetadataLedgerResetThenGet(t *testing.T) {
	srv := newMetadataServer()
	ledger := newTestLedger(t, srv)
	ctx := context.Background()

	if err := ledger.Reset(ctx, "user_1"); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	usage, ok, err := ledger.Get(ctx, "user_1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok || usage != 0 {
		t.Fatalf("Get() = (%d, %v), want (0, true)", usage, ok)
	}
}

func TestMetadataLedgerIncrement(t *testing.T) {
	srv := newMetadataServer()
	ledger := newTestLedger(t, srv)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := ledger.Increment(ctx, "user_1")
		if err != nil {
			t.Fatalf("Increment() error: %v", err)
		}
		if got != want {
			t.Fatalf("Increment() = %d, want %d", got, want)
		}
	}
	usage, ok, err := ledger.Get(ctx, "user_1")
	if err != nil || !ok || usage != 3 {
		t.Fatalf("Get() = (%d, %v, %v), want (3, true, nil)", usage, ok, err)
	}
}

func TestMetadataLedgerProviderFailure(t *testing.T) {
	srv := newMetadataServer()
	srv.fail = true
	ledger := newTestLedger(t, srv)
	ctx := context.Background()

	if _, _, err := ledger.Get(ctx, "user_1"); err == nil {
		t.Errorf("Get() expected error")
	}
	if err := ledger.Reset(ctx, "user_1"); err == nil {
		t.Errorf("Reset() expected error")
	}
	if _, err := ledger.Increment(ctx, "user_1"); err == nil {
		t.Errorf("Increment() expected error")
	}
}

func TestMemoryLedgerConcurrentIncrements(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Increment(ctx, "user_1"); err != nil {
				t.Errorf("Increment() error: %v", err)
			}
		}()
	}
	wg.Wait()

	usage, ok, err := ledger.Get(ctx, "user_1")
	if err != nil || !ok {
		t.Fatalf("Get() = (_, %v, %v)", ok, err)
	}
	if usage != n {
		t.Fatalf("usage = %d, want %d", usage, n)
	}
}

func TestMetadataLedgerRequiresUserID(t *testing.T) {
	ledger := newTestLedger(t, newMetadataServer())
	ctx := context.Background()
	if _, _, err := ledger.Get(ctx, " "); err == nil {
		t.Errorf("Get() expected error for blank user id")
	}
	if err := ledger.Reset(ctx, ""); err == nil {
		t.Errorf("Reset() expected error for blank user id")
	}
}

func ExampleMemoryLedger() {
	ledger := NewMemoryLedger()
	_ = ledger.Reset(context.Background(), "user_1")
	usage, _ := ledger.Increment(context.Background(), "user_1")
	fmt.Println(usage)
	// Output: 1
}
