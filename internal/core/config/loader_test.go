package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfig = `
server:
  port: 9090
validator:
  signing_key: ${TEST_VALIDATOR_KEY}
  secret_ttl: 30s
chains:
  - id: 137
    rpc_url: https://polygon.example.org
    contract_address: "0x1111111111111111111111111111111111111111"
    deploy_block: 4200000
    games: [dice, coinflip]
  - id: 56
    rpc_url: https://bsc.example.org
    contract_address: "0x2222222222222222222222222222222222222222"
    deploy_block: 100
    poll_interval: 3s
    max_range_size: 500
    rescan_ranges: true
    games: [dice]
logging:
  level: debug
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_VALIDATOR_KEY", "deadbeef")
	cfg, err := Load(writeTestConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Validator.SigningKey != "deadbeef" {
		t.Errorf("signing key env var not expanded: %q", cfg.Validator.SigningKey)
	}
	if cfg.Validator.SecretTTL != 30*time.Second {
		t.Errorf("secret ttl = %v, want 30s", cfg.Validator.SecretTTL)
	}
	if len(cfg.Chains) != 2 {
		t.Fatalf("chains = %d, want 2", len(cfg.Chains))
	}

	polygon := cfg.Chains[0]
	if polygon.ChainID != 137 || polygon.DeployBlock != 4200000 {
		t.Errorf("unexpected polygon config: %+v", polygon)
	}
	if len(polygon.Games) != 2 || polygon.Games[0] != "dice" {
		t.Errorf("unexpected polygon games: %v", polygon.Games)
	}

	bsc := cfg.Chains[1]
	if bsc.PollInterval != 3*time.Second || bsc.MaxRangeSize != 500 {
		t.Errorf("unexpected bsc config: %+v", bsc)
	}
	if !bsc.RescanRanges {
		t.Error("bsc rescan_ranges not parsed")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, "chains:\n  - id: 1\n    rpc_url: http://localhost:8545\n"))
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Validator.SecretTTL != time.Minute {
		t.Errorf("default secret ttl = %v, want 1m", cfg.Validator.SecretTTL)
	}
	if cfg.Chains[0].PollInterval != 10*time.Second {
		t.Errorf("default poll interval = %v, want 10s", cfg.Chains[0].PollInterval)
	}
	if cfg.Chains[0].MaxRangeSize != 2000 {
		t.Errorf("default max range size = %d, want 2000", cfg.Chains[0].MaxRangeSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of a missing file did not fail")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeTestConfig(t, "chains: [unclosed")); err == nil {
		t.Error("Load of malformed YAML did not fail")
	}
}
