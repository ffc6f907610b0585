package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"antigravity2api-go/internal/account"
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/sigcache"
	"antigravity2api-go/internal/tokenstore"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
)

// startTestServer 启动一个假上游并挂接清理
func startTestServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

// e2eAccount 返回一个开箱即用的测试账号
func e2eAccount(n string) *tokenstore.Account {
	return &tokenstore.Account{
		AccessToken:  "at-" + n,
		RefreshToken: "rt-" + n,
		ExpiresIn:    3600,
		Timestamp:    time.Now().UnixMilli(),
		Enable:       true,
		ProjectID:    "proj-e2e",
	}
}

// newTestRelay 把假上游接到完整的 relay 管线上：单池、文件存储、共享签名缓存
func newTestRelay(t *testing.T, upstreamURL string, accounts ...*tokenstore.Account) *common.Relay {
	t.Helper()

	cfg := config.Defaults()
	cfg.HeartbeatSec = 3600 // 心跳会混进断言的流里，推远它
	cfg.RetryTimes = 0

	if len(accounts) == 0 {
		accounts = []*tokenstore.Account{e2eAccount("0")}
	}
	store := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "accounts.json"), "")
	if err := store.Save(accounts); err != nil {
		t.Fatal(err)
	}

	variant := upstream.Variant{
		Name:         "teste2e",
		BaseURLs:     []string{upstreamURL},
		UserAgent:    "teste2e/0.0",
		AccountsFile: "accounts.json",
	}
	client := upstream.New(cfg, variant)

	mgr := account.NewManager(account.Options{
		Variant: variant,
		Store:   store,
		Caller:  client,
	})
	if err := mgr.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mgr.Close)

	conv := translator.NewConverter(sigcache.New(sigcache.Policy{CacheAll: true}, time.Hour), false)
	return &common.Relay{Cfg: cfg, Manager: mgr, Client: client, Conv: conv}
}
