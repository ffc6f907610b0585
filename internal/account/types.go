package account

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"antigravity2api-go/internal/tokenstore"
	"antigravity2api-go/internal/upstream"
)

// Strategy selects how the rotation index advances after a successful
// token grant.
type Strategy string

const (
	StrategyRoundRobin     Strategy = "round_robin"
	StrategyRequestCount   Strategy = "request_count"
	StrategyQuotaExhausted Strategy = "quota_exhausted"
)

// ParseStrategy maps config strings onto strategies, defaulting to
// round_robin for unknown values.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyRequestCount, StrategyQuotaExhausted:
		return Strategy(s)
	default:
		return StrategyRoundRobin
	}
}

// TokenError carries the upstream status of a failed refresh so callers can
// distinguish dead accounts (400/403) from transient failures.
type TokenError struct {
	Message string
	TokenID string
	Status  int
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token refresh failed (status=%d, token=%s): %s", e.Status, e.TokenID, e.Message)
}

// IsAuthFailure reports whether the error should permanently disable the
// account.
func (e *TokenError) IsAuthFailure() bool {
	return e.Status == http.StatusBadRequest || e.Status == http.StatusForbidden
}

// CodeAssistCaller is the slice of the upstream client the manager needs for
// project bootstrap.
type CodeAssistCaller interface {
	Action(ctx context.Context, action, bearer string, payload []byte) ([]byte, int, error)
}

// Options configure a Manager instance. One Manager exclusively owns one pool.
type Options struct {
	Variant       upstream.Variant
	Store         tokenstore.Store
	Caller        CodeAssistCaller
	Strategy      Strategy
	RequestCount  int
	RefreshBuffer time.Duration

	// Test seams.
	HTTPClient *http.Client
	TokenURL   string
}
