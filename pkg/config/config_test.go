package config

import (
	"os"
	"testing"
)

func clearExecutionEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"EXECUTION_MODE", "CLOB_API_KEY", "CLOB_SECRET", "CLOB_PASSPHRASE",
		"WALLET_PRIVATE_KEY", "MIN_MERGE_SIZE", "RISK_STORE_ENABLED",
		"POSTGRES_HOST", "POSTGRES_DB", "HTTP_PORT", "MARKET_POLL_INTERVAL",
		"POSCACHE_NUM_COUNTERS",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadFromEnv_DefaultsToPaperMode(t *testing.T) {
	clearExecutionEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.ExecutionMode != "paper" {
		t.Errorf("expected paper mode by default, got %q", cfg.ExecutionMode)
	}
}

func TestLoadFromEnv_LiveModeRequiresCredentials(t *testing.T) {
	clearExecutionEnv(t)
	os.Setenv("EXECUTION_MODE", "live")
	t.Cleanup(func() { clearExecutionEnv(t) })

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected an error when live mode is missing credentials")
	}
}

func TestLoadFromEnv_LiveModeWithCredentialsSucceeds(t *testing.T) {
	clearExecutionEnv(t)
	os.Setenv("EXECUTION_MODE", "live")
	os.Setenv("CLOB_API_KEY", "key")
	os.Setenv("CLOB_SECRET", "secret")
	os.Setenv("CLOB_PASSPHRASE", "pass")
	os.Setenv("WALLET_PRIVATE_KEY", "0xdeadbeef")
	t.Cleanup(func() { clearExecutionEnv(t) })

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.ExecutionMode != "live" {
		t.Errorf("expected live mode, got %q", cfg.ExecutionMode)
	}
}

func TestValidate_RejectsUnknownExecutionMode(t *testing.T) {
	cfg := &Config{
		HTTPPort:            "8080",
		ExecutionMode:       "turbo",
		PosCacheNumCounters: 1, PosCacheMaxCost: 1, PosCacheBufferItems: 1,
		MarketPollInterval: 1,
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown execution mode")
	}
}

func TestValidate_RejectsNegativeMinMergeSize(t *testing.T) {
	cfg := &Config{
		HTTPPort: "8080", ExecutionMode: "paper", MinMergeSize: -1,
		PosCacheNumCounters: 1, PosCacheMaxCost: 1, PosCacheBufferItems: 1,
		MarketPollInterval: 1,
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a negative MIN_MERGE_SIZE")
	}
}

func TestValidate_RiskStoreEnabledRequiresPostgresHost(t *testing.T) {
	cfg := &Config{
		HTTPPort: "8080", ExecutionMode: "paper",
		PosCacheNumCounters: 1, PosCacheMaxCost: 1, PosCacheBufferItems: 1,
		MarketPollInterval: 1,
		RiskStoreEnabled:   true,
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when risk store is enabled without a Postgres host")
	}
}
