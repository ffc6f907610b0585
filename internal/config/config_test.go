package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if cfg == nil {
		t.Fatal("missing file must not be an error")
	}
	if cfg.Port != 7861 || cfg.Rotation.Strategy != "round_robin" || cfg.Rotation.RequestCount != 10 {
		t.Errorf("defaults: %+v", cfg)
	}
	if !cfg.Signature.CacheThinking || !cfg.Signature.CacheToolSignatures {
		t.Errorf("signature defaults: %+v", cfg.Signature)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
port: 9000
api_key: sk-local
rotation:
  strategy: request_count
  request_count: 7
signature:
  cache_all: true
  ttl_minutes: 5
fake_non_stream: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := Load(path)
	if cfg == nil {
		t.Fatal("load failed")
	}
	if cfg.Port != 9000 || cfg.APIKey != "sk-local" || !cfg.FakeNonStream {
		t.Errorf("overrides: %+v", cfg)
	}
	if cfg.Rotation.Strategy != "request_count" || cfg.Rotation.RequestCount != 7 {
		t.Errorf("rotation: %+v", cfg.Rotation)
	}
	if !cfg.Signature.CacheAll || cfg.SignatureTTL() != 5*time.Minute {
		t.Errorf("signature: %+v", cfg.Signature)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: 9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9100")
	t.Setenv("ROTATION_STRATEGY", "quota_exhausted")
	t.Setenv("FAKE_NON_STREAM", "yes")

	cfg := Load(path)
	if cfg.Port != 9100 || cfg.Rotation.Strategy != "quota_exhausted" || !cfg.FakeNonStream {
		t.Errorf("env overrides: %+v", cfg)
	}
}

func TestNormalize_ClampsBadValues(t *testing.T) {
	cfg := &Config{Port: -1, RetryTimes: -5}
	cfg.normalize()
	if cfg.Port != 7861 || cfg.RetryTimes != 0 {
		t.Errorf("normalize: %+v", cfg)
	}
	if cfg.HeartbeatInterval() != 15*time.Second || cfg.RefreshBuffer() != 180*time.Second {
		t.Errorf("durations: %v %v", cfg.HeartbeatInterval(), cfg.RefreshBuffer())
	}
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: [not a number\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if cfg := Load(path); cfg != nil {
		t.Error("malformed yaml should fail loudly")
	}
}

func TestAccountsFile(t *testing.T) {
	cfg := &Config{DataDir: "data"}
	if got := cfg.AccountsFile("accounts.json"); got != filepath.Join("data", "accounts.json") {
		t.Errorf("accounts path: %s", got)
	}
}
