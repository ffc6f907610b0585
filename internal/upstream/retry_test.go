package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoWithRetry_RetriesOn429ThenSucceeds(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer ts.Close()

	resp, err := DoWithRetry(context.Background(), 3, func() (*http.Response, error) {
		return http.Get(ts.URL)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || attempts != 3 {
		t.Errorf("status=%d attempts=%d", resp.StatusCode, attempts)
	}
}

func TestDoWithRetry_ExhaustsAndReturnsLast429(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	resp, err := DoWithRetry(context.Background(), 2, func() (*http.Response, error) {
		return http.Get(ts.URL)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	// 重试用尽后把最后一个 429 交还给调用方决定换号
	if resp.StatusCode != http.StatusTooManyRequests || attempts != 3 {
		t.Errorf("status=%d attempts=%d", resp.StatusCode, attempts)
	}
}

func TestDoWithRetry_NonRetryableStatusPassesThrough(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	resp, err := DoWithRetry(context.Background(), 3, func() (*http.Response, error) {
		return http.Get(ts.URL)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized || attempts != 1 {
		t.Errorf("401 must not retry: status=%d attempts=%d", resp.StatusCode, attempts)
	}
}

func TestDoWithRetry_ContextCancelDuringBackoff(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := DoWithRetry(ctx, 3, func() (*http.Response, error) {
		return http.Get(ts.URL)
	})
	if err != context.DeadlineExceeded {
		t.Errorf("want context deadline, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("7"); !ok || d != 7*time.Second {
		t.Errorf("seconds form: %v %v", d, ok)
	}
	if d, ok := parseRetryAfter("-3"); !ok || d != 0 {
		t.Errorf("negative clamps to zero: %v %v", d, ok)
	}
	future := time.Now().Add(90 * time.Second).UTC().Format(time.RFC1123)
	if d, ok := parseRetryAfter(future); !ok || d <= 0 || d > 90*time.Second {
		t.Errorf("http date form: %v %v", d, ok)
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Error("empty header should not parse")
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Error("garbage should not parse")
	}
}
