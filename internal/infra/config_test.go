package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/inkwell")
	t.Setenv("IDENTITY_ISSUER", "https://sessions.example.test")
	t.Setenv("IDENTITY_SECRET_KEY", "sk_test_123")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.FreeTierQuota != 10 {
		t.Errorf("FreeTierQuota = %d, want 10", cfg.FreeTierQuota)
	}
	if cfg.MaxUploadBytes != 5*1024*1024 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 5*1024*1024)
	}
	if cfg.HTTPReadTimeout != 15*time.Second {
		t.Errorf("HTTPReadTimeout = %v, want 15s", cfg.HTTPReadTimeout)
	}
	if cfg.HTTPReadHeaderTimeout != 5*time.Second {
		t.Errorf("HTTPReadHeaderTimeout = %v, want 5s", cfg.HTTPReadHeaderTimeout)
	}
	want := "https://sessions.example.test/.well-known/jwks.json"
	if cfg.IdentityJWKSURL != want {
		t.Errorf("IdentityJWKSURL = %q, want %q", cfg.IdentityJWKSURL, want)
	}
}

func TestLoadConfigRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "missing database url", unset: "DATABASE_URL"},
		{name: "missing identity issuer", unset: "IDENTITY_ISSUER"},
		{name: "missing identity secret", unset: "IDENTITY_SECRET_KEY"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.unset, "")
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("LoadConfig() expected error when %s is unset", tc.unset)
			}
		})
	}
}

func TestLoadConfigRejectsNonPositiveQuota(t *testing.T) {
	for _, quota := range []string{"-1", "0"} {
		t.Run(quota, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("FREE_TIER_QUOTA", quota)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("LoadConfig() expected error for quota %s", quota)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.test , ,https://b.test ")
	if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
		t.Fatalf("splitList() = %v", got)
	}
}
