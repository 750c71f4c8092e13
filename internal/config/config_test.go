package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_ADDR", "")
	t.Setenv("LEDGER_CONFIRM_TIMEOUT", "")
	t.Setenv("AGGREGATOR_QUOTE_MINT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Ledger.ConfirmTimeout != 60*time.Second {
		t.Errorf("Expected confirm timeout 60s, got %v", cfg.Ledger.ConfirmTimeout)
	}
	if cfg.Aggregator.QuoteMint != WrappedSolMint {
		t.Errorf("Expected quote mint %s, got %s", WrappedSolMint, cfg.Aggregator.QuoteMint)
	}
	if cfg.Auth.AddressClaim != "walletAddress" {
		t.Errorf("Expected address claim walletAddress, got %s", cfg.Auth.AddressClaim)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LEDGER_CONFIRM_INTERVAL", "500ms")
	t.Setenv("TREASURY_DEFAULT_LAMPORTS", "250000")
	t.Setenv("SERVER_RATE_LIMIT", "0.5")
	t.Setenv("RECONCILER_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Expected two trimmed origins, got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Ledger.ConfirmInterval != 500*time.Millisecond {
		t.Errorf("Expected confirm interval 500ms, got %v", cfg.Ledger.ConfirmInterval)
	}
	if cfg.Treasury.DefaultLamports != 250000 {
		t.Errorf("Expected 250000 lamports, got %d", cfg.Treasury.DefaultLamports)
	}
	if cfg.Server.RateLimit != 0.5 {
		t.Errorf("Expected rate limit 0.5, got %v", cfg.Server.RateLimit)
	}
	if cfg.Reconciler.Enabled {
		t.Error("Expected reconciler to be disabled")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LEDGER_CONFIRM_TIMEOUT", "soon"},
		{"TREASURY_DEFAULT_LAMPORTS", "-1"},
		{"SERVER_RATE_LIMIT", "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("Expected error to name %s, got %v", tt.key, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "http://localhost:8899")
	t.Setenv("SIGNER_URL", "http://localhost:9000/sign")
	t.Setenv("MINTER_URL", "http://localhost:9001")
	t.Setenv("TREASURY_ADDRESS", WrappedSolMint)
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	cfg.Signer.SignURL = ""
	cfg.Auth.JWTSecret = ""
	err = Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for missing settings")
	}
	if !strings.Contains(err.Error(), "SIGNER_URL") || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("Expected every missing setting to be named, got %v", err)
	}

	cfg.Signer.SignURL = "http://localhost:9000/sign"
	cfg.Auth.JWTSecret = "secret"
	cfg.Ledger.ConfirmTimeout = time.Millisecond
	if err := Validate(cfg); err == nil {
		t.Error("Expected error when confirm timeout is shorter than the interval")
	}
}
