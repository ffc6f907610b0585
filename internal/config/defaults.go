package config

// Defaults returns the baseline configuration before file and environment
// overrides are applied.
func Defaults() *Config {
	return &Config{
		Host:    "0.0.0.0",
		Port:    7861,
		DataDir: "data",
		Rotation: RotationConfig{
			Strategy:     "round_robin",
			RequestCount: 10,
		},
		Signature: SignatureConfig{
			CacheThinking:       true,
			CacheToolSignatures: true,
			TTLMinutes:          60,
		},
		RetryTimes:       3,
		TimeoutSec:       60,
		HeartbeatSec:     15,
		RefreshBufferSec: 180,
	}
}
