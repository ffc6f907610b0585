package config

import (
	"os"
	"strconv"
	"strings"
)

func envStr(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "true", "1", "yes", "on":
		*dst = true
	case "false", "0", "no", "off":
		*dst = false
	}
}

func applyEnv(cfg *Config) {
	envStr("HOST", &cfg.Host)
	envInt("PORT", &cfg.Port)
	envStr("API_KEY", &cfg.APIKey)
	envStr("ADMIN_PASSWORD", &cfg.AdminPassword)
	envStr("DATA_DIR", &cfg.DataDir)
	envStr("ENCRYPT_PASSWORD", &cfg.EncryptPassword)
	envStr("REDIS_URL", &cfg.RedisURL)
	envStr("ROTATION_STRATEGY", &cfg.Rotation.Strategy)
	envInt("ROTATION_REQUEST_COUNT", &cfg.Rotation.RequestCount)
	envInt("RETRY_TIMES", &cfg.RetryTimes)
	envInt("TIMEOUT_SEC", &cfg.TimeoutSec)
	envInt("HEARTBEAT_SEC", &cfg.HeartbeatSec)
	envInt("REFRESH_BUFFER_SEC", &cfg.RefreshBufferSec)
	envBool("FAKE_NON_STREAM", &cfg.FakeNonStream)
	envBool("PASS_SIGNATURE_TO_CLIENT", &cfg.PassSignatureToClient)
	envBool("CACHE_THINKING", &cfg.Signature.CacheThinking)
	envBool("CACHE_TOOL_SIGNATURES", &cfg.Signature.CacheToolSignatures)
	envBool("CACHE_IMAGE_SIGNATURES", &cfg.Signature.CacheImageSignatures)
	envBool("CACHE_ALL_SIGNATURES", &cfg.Signature.CacheAll)
	envStr("PROXY_URL", &cfg.ProxyURL)
	envBool("DEBUG", &cfg.Debug)
	envStr("LOG_FILE", &cfg.LogFile)
}
