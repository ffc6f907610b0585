package upstream

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"antigravity2api-go/internal/constants"
	log "github.com/sirupsen/logrus"
)

// DoWithRetry wraps an upstream call with 429-bounded retry. Only status 429
// triggers a retry; other statuses and transport errors propagate. The same
// bearer/payload is reused across attempts — rotating accounts between
// attempts is the handler's decision, not this helper's.
func DoWithRetry(ctx context.Context, retryTimes int, fn func() (*http.Response, error)) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; ; attempt++ {
		resp, err = fn()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= retryTimes {
			return resp, nil
		}

		delay, ok := parseRetryAfter(resp.Header.Get("Retry-After"))
		if !ok {
			delay = nextBackoff(attempt)
		}
		resp.Body.Close()
		log.Warnf("upstream 429, retrying in %s (attempt %d/%d)", delay, attempt+1, retryTimes)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func nextBackoff(attempt int) time.Duration {
	base := float64(constants.DefaultRetryInterval)
	max := float64(constants.DefaultMaxRetryDelay)
	dur := base * math.Pow(2, float64(attempt))
	if dur > max {
		dur = max
	}
	jitter := 0.5 + rand.Float64()
	return time.Duration(dur * jitter)
}

func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	layouts := []string{time.RFC1123, time.RFC1123Z, time.RFC850, time.ANSIC}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			d := time.Until(t)
			if d < 0 {
				d = 0
			}
			return d, true
		}
	}
	return 0, false
}
