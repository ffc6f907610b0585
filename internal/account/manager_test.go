package account

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"antigravity2api-go/internal/tokenstore"
	"antigravity2api-go/internal/upstream"
)

func freshAccount(n int) *tokenstore.Account {
	return &tokenstore.Account{
		AccessToken:  fmt.Sprintf("at-%d", n),
		RefreshToken: fmt.Sprintf("rt-%d", n),
		ExpiresIn:    3600,
		Timestamp:    time.Now().UnixMilli(),
		Enable:       true,
	}
}

func newTestManager(t *testing.T, accounts []*tokenstore.Account, opts Options) *Manager {
	t.Helper()
	store := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "accounts.json"), "")
	if err := store.Save(accounts); err != nil {
		t.Fatal(err)
	}
	opts.Variant = upstream.GeminiCLI()
	opts.Store = store
	m := NewManager(opts)
	if err := m.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestGetToken_RoundRobinFairness(t *testing.T) {
	m := newTestManager(t, []*tokenstore.Account{
		freshAccount(0), freshAccount(1), freshAccount(2),
	}, Options{Strategy: StrategyRoundRobin})

	counts := make(map[string]int)
	var order []string
	for i := 0; i < 6; i++ {
		tok := m.GetToken(context.Background())
		if tok == nil {
			t.Fatalf("grant %d: no token", i)
		}
		counts[tok.RefreshToken]++
		order = append(order, tok.RefreshToken)
	}
	for rt, n := range counts {
		if n != 2 {
			t.Errorf("%s granted %d times, want 2 (order: %v)", rt, n, order)
		}
	}
	if order[0] == order[1] {
		t.Errorf("round robin must advance every grant: %v", order)
	}

	// 生命周期计数进管理列表
	infos, err := m.ListTokens()
	if err != nil {
		t.Fatal(err)
	}
	for _, info := range infos {
		if info.Requests != 2 {
			t.Errorf("%s: requests = %d, want 2", info.TokenID, info.Requests)
		}
	}
}

func TestGetToken_RequestCountStrategy(t *testing.T) {
	m := newTestManager(t, []*tokenstore.Account{
		freshAccount(0), freshAccount(1),
	}, Options{Strategy: StrategyRequestCount, RequestCount: 3})

	var order []string
	for i := 0; i < 8; i++ {
		tok := m.GetToken(context.Background())
		if tok == nil {
			t.Fatal("no token")
		}
		order = append(order, tok.RefreshToken)
	}
	want := []string{"rt-0", "rt-0", "rt-0", "rt-1", "rt-1", "rt-1", "rt-0", "rt-0"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("grant %d: want %s, got %s (full: %v)", i, want[i], order[i], order)
		}
	}
}

func TestGetToken_QuotaExhaustedStrategy(t *testing.T) {
	m := newTestManager(t, []*tokenstore.Account{
		freshAccount(0), freshAccount(1),
	}, Options{Strategy: StrategyQuotaExhausted})

	for i := 0; i < 3; i++ {
		if tok := m.GetToken(context.Background()); tok.RefreshToken != "rt-0" {
			t.Fatalf("grant %d should stay on rt-0, got %s", i, tok.RefreshToken)
		}
	}
	m.ReportQuotaExhausted("rt-0")
	if tok := m.GetToken(context.Background()); tok.RefreshToken != "rt-1" {
		t.Fatalf("after quota exhaustion want rt-1, got %s", tok.RefreshToken)
	}
}

func TestGetToken_ClonesAreIsolated(t *testing.T) {
	m := newTestManager(t, []*tokenstore.Account{freshAccount(0)}, Options{})

	tok := m.GetToken(context.Background())
	tok.AccessToken = "mutated"
	again := m.GetToken(context.Background())
	if again.AccessToken != "at-0" {
		t.Errorf("handler mutation leaked into the pool: %s", again.AccessToken)
	}
}

func TestDisableByRefreshToken_RemovesAndPersists(t *testing.T) {
	store := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "accounts.json"), "")
	if err := store.Save([]*tokenstore.Account{freshAccount(0), freshAccount(1)}); err != nil {
		t.Fatal(err)
	}
	m := NewManager(Options{Variant: upstream.GeminiCLI(), Store: store})
	if err := m.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	m.DisableByRefreshToken("rt-0", "upstream said 401")

	for i := 0; i < 3; i++ {
		if tok := m.GetToken(context.Background()); tok == nil || tok.RefreshToken == "rt-0" {
			t.Fatalf("disabled account still granted: %v", tok)
		}
	}
	saved, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	for _, acct := range saved {
		if acct.RefreshToken == "rt-0" && acct.Enable {
			t.Error("disable not persisted")
		}
	}
}

func TestRefreshAccount_ViaTokenEndpoint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "rt-0" {
			t.Errorf("unexpected form: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "new-token", "expires_in": 3599}`)
	}))
	defer ts.Close()

	expired := freshAccount(0)
	expired.AccessToken = ""

	m := newTestManager(t, []*tokenstore.Account{expired}, Options{TokenURL: ts.URL, HTTPClient: ts.Client()})

	tok := m.GetToken(context.Background())
	if tok == nil || tok.AccessToken != "new-token" {
		t.Fatalf("expected refreshed token, got %+v", tok)
	}
}

func TestGetToken_AutoDisableOnAuthFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("refresh_token") == "rt-0" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": "invalid_grant"}`)
			return
		}
		fmt.Fprint(w, `{"access_token": "ok", "expires_in": 3599}`)
	}))
	defer ts.Close()

	dead := freshAccount(0)
	dead.AccessToken = ""
	alive := freshAccount(1)
	alive.AccessToken = ""

	store := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "accounts.json"), "")
	if err := store.Save([]*tokenstore.Account{dead, alive}); err != nil {
		t.Fatal(err)
	}
	m := NewManager(Options{
		Variant:    upstream.GeminiCLI(),
		Store:      store,
		TokenURL:   ts.URL,
		HTTPClient: ts.Client(),
	})
	if err := m.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Init 的启动刷新已经禁掉 rt-0
	tok := m.GetToken(context.Background())
	if tok == nil || tok.RefreshToken != "rt-1" {
		t.Fatalf("want rt-1, got %+v", tok)
	}
	saved, _ := store.Load()
	for _, acct := range saved {
		if acct.RefreshToken == "rt-0" && acct.Enable {
			t.Error("auth-failed account should be disabled in the store")
		}
	}
}

func TestGetToken_EmptyPool(t *testing.T) {
	m := newTestManager(t, nil, Options{})
	if tok := m.GetToken(context.Background()); tok != nil {
		t.Errorf("empty pool must yield nil, got %+v", tok)
	}
}

func TestUpdateRotationConfig_ResetsState(t *testing.T) {
	m := newTestManager(t, []*tokenstore.Account{
		freshAccount(0), freshAccount(1),
	}, Options{Strategy: StrategyRoundRobin})

	m.GetToken(context.Background()) // index moves to 1
	m.UpdateRotationConfig(StrategyRequestCount, 5)

	strategy, count := m.RotationConfig()
	if strategy != StrategyRequestCount || count != 5 {
		t.Errorf("rotation config: %s/%d", strategy, count)
	}
	if tok := m.GetToken(context.Background()); tok.RefreshToken != "rt-0" {
		t.Errorf("index should reset to 0, got %s", tok.RefreshToken)
	}
}

func TestParseStrategy(t *testing.T) {
	if ParseStrategy("request_count") != StrategyRequestCount {
		t.Error("request_count")
	}
	if ParseStrategy("quota_exhausted") != StrategyQuotaExhausted {
		t.Error("quota_exhausted")
	}
	if ParseStrategy("bogus") != StrategyRoundRobin {
		t.Error("unknown strategies default to round_robin")
	}
}

func TestTokenError_IsAuthFailure(t *testing.T) {
	for status, want := range map[int]bool{400: true, 403: true, 401: false, 429: false, 500: false} {
		e := &TokenError{Status: status}
		if e.IsAuthFailure() != want {
			t.Errorf("status %d: want %v", status, want)
		}
	}
}
