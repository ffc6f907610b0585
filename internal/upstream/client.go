package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
	log "github.com/sirupsen/logrus"
)

// Client talks to one Code Assist variant. It is safe for concurrent use;
// per-request credentials are passed as bearer tokens, never stored.
type Client struct {
	cfg     *config.Config
	variant Variant
	cli     *http.Client
}

// New builds a client with a tuned transport.
func New(cfg *config.Config, variant Variant) *Client {
	tr := &http.Transport{
		Proxy: proxyFunc(cfg.ProxyURL),
		DialContext: (&net.Dialer{
			Timeout:   constants.DefaultDialTimeout,
			KeepAlive: constants.DefaultKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   constants.DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout(cfg),
		ExpectContinueTimeout: constants.DefaultExpectContinueTimeout,
		MaxIdleConns:          constants.BaseMaxIdleConns,
		MaxIdleConnsPerHost:   constants.BaseMaxIdleConnsPerHost,
		IdleConnTimeout:       constants.BaseIdleConnTimeout,
	}
	// Overall client timeout stays 0: stream bodies outlive any fixed budget,
	// liveness is the heartbeat's job.
	return &Client{cfg: cfg, variant: variant, cli: &http.Client{Transport: tr, Timeout: 0}}
}

func responseHeaderTimeout(cfg *config.Config) time.Duration {
	if cfg != nil && cfg.TimeoutSec > 0 {
		return time.Duration(cfg.TimeoutSec) * time.Second
	}
	return constants.DefaultResponseHeaderTimeout
}

func proxyFunc(proxyURL string) func(*http.Request) (*url.URL, error) {
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			return http.ProxyURL(parsed)
		}
	}
	return http.ProxyFromEnvironment
}

// Variant exposes the configured upstream flavor.
func (c *Client) Variant() Variant { return c.variant }

// postJSON walks the variant's base URLs, failing over on network errors and
// 404s (the daily Antigravity host occasionally rotates).
//
// Caller MUST close resp.Body when resp is non-nil and err is nil.
func (c *Client) postJSON(ctx context.Context, path string, bearer string, payload []byte) (*http.Response, error) {
	var lastErr error
	for i, base := range c.variant.BaseURLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		c.applyHeaders(req, bearer)

		resp, err := c.cli.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warnf("upstream %s request to %s failed", c.variant.Name, base)
			continue
		}
		if resp.StatusCode == http.StatusNotFound && i < len(c.variant.BaseURLs)-1 {
			resp.Body.Close()
			log.Warnf("upstream %s returned 404 on %s, trying next host", c.variant.Name, base)
			continue
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no upstream host available for %s", c.variant.Name)
	}
	return nil, lastErr
}

// Generate sends a non-stream request to v1internal:generateContent.
//
// Caller MUST close resp.Body when resp is non-nil and err is nil.
func (c *Client) Generate(ctx context.Context, bearer string, payload []byte) (*http.Response, error) {
	return c.postJSON(ctx, "/v1internal:generateContent", bearer, payload)
}

// Stream sends a stream request to v1internal:streamGenerateContent.
//
// Caller MUST close resp.Body when resp is non-nil and err is nil.
func (c *Client) Stream(ctx context.Context, bearer string, payload []byte) (*http.Response, error) {
	return c.postJSON(ctx, "/v1internal:streamGenerateContent?alt=sse", bearer, payload)
}

// Action calls an arbitrary v1internal method (loadCodeAssist, onboardUser)
// and returns the body plus status.
func (c *Client) Action(ctx context.Context, action, bearer string, payload []byte) ([]byte, int, error) {
	resp, err := c.postJSON(ctx, "/v1internal:"+action, bearer, payload)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
