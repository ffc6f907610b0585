package constants

import "time"

// 重试策略常量
const (
	DefaultRetryTimes    = 3
	DefaultRetryInterval = 1 * time.Second
	DefaultMaxRetryDelay = 10 * time.Second

	// onboardUser polling
	OnboardMaxAttempts  = 5
	OnboardPollInterval = 2 * time.Second
)
