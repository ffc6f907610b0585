package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config carries the resolved runtime configuration. File merging (.env,
// config.json) happens upstream of this package; the core consumes only the
// resolved values.
type Config struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	APIKey        string `yaml:"api_key"`
	AdminPassword string `yaml:"admin_password"`

	DataDir string `yaml:"data_dir"`
	// EncryptPassword enables encryption-at-rest for account files when set.
	EncryptPassword string `yaml:"encrypt_password"`
	// RedisURL switches the token store to the Redis backend when set.
	RedisURL string `yaml:"redis_url"`

	Rotation  RotationConfig  `yaml:"rotation"`
	Signature SignatureConfig `yaml:"signature"`

	RetryTimes            int  `yaml:"retry_times"`
	TimeoutSec            int  `yaml:"timeout_sec"`
	HeartbeatSec          int  `yaml:"heartbeat_sec"`
	RefreshBufferSec      int  `yaml:"refresh_buffer_sec"`
	FakeNonStream         bool `yaml:"fake_non_stream"`
	PassSignatureToClient bool `yaml:"pass_signature_to_client"`

	ProxyURL string `yaml:"proxy_url"`

	Debug   bool   `yaml:"debug"`
	LogFile string `yaml:"log_file"`
}

// RotationConfig selects the account rotation strategy.
type RotationConfig struct {
	// Strategy is one of round_robin, request_count, quota_exhausted.
	Strategy string `yaml:"strategy"`
	// RequestCount applies to the request_count strategy.
	RequestCount int `yaml:"request_count"`
}

// SignatureConfig gates the thought-signature cache.
type SignatureConfig struct {
	CacheThinking        bool `yaml:"cache_thinking"`
	CacheToolSignatures  bool `yaml:"cache_tool_signatures"`
	CacheImageSignatures bool `yaml:"cache_image_signatures"`
	CacheAll             bool `yaml:"cache_all"`
	TTLMinutes           int  `yaml:"ttl_minutes"`
}

// Load reads the YAML config file, falls back to defaults for absent fields
// and applies environment overrides. A missing file is not an error.
func Load(path string) *Config {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				log.WithError(err).Errorf("failed to parse config file %s", path)
				return nil
			}
		case os.IsNotExist(err):
			log.Debugf("config file %s not found, using defaults", path)
		default:
			log.WithError(err).Errorf("failed to read config file %s", path)
			return nil
		}
	}

	applyEnv(cfg)
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = 7861
	}
	if c.RetryTimes < 0 {
		c.RetryTimes = 0
	}
	if c.Rotation.Strategy == "" {
		c.Rotation.Strategy = "round_robin"
	}
	if c.Rotation.RequestCount <= 0 {
		c.Rotation.RequestCount = 10
	}
	if c.HeartbeatSec <= 0 {
		c.HeartbeatSec = 15
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = 60
	}
	if c.RefreshBufferSec <= 0 {
		c.RefreshBufferSec = 180
	}
	if c.Signature.TTLMinutes <= 0 {
		c.Signature.TTLMinutes = 60
	}
}

// HeartbeatInterval converts the configured seconds to a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSec) * time.Second
}

// RefreshBuffer converts the configured seconds to a duration.
func (c *Config) RefreshBuffer() time.Duration {
	return time.Duration(c.RefreshBufferSec) * time.Second
}

// SignatureTTL converts the configured minutes to a duration.
func (c *Config) SignatureTTL() time.Duration {
	return time.Duration(c.Signature.TTLMinutes) * time.Minute
}

// EnsureDataDir creates the data directory if necessary.
func (c *Config) EnsureDataDir() error {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// AccountsFile returns the account file path for the given pool name.
func (c *Config) AccountsFile(name string) string {
	return filepath.Join(c.DataDir, name)
}

// ImagesDir returns the sidecar directory for model-generated images.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.DataDir, "images")
}
