package account

import (
	"context"
	"net/http"
	"sync"
	"time"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/tokenstore"
	"antigravity2api-go/internal/upstream"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Manager owns one account pool (Antigravity or CLI) and dispenses tokens
// under the configured rotation strategy. It is the logical single writer for
// account mutations; handlers only ever receive clones.
type Manager struct {
	variant upstream.Variant
	store   tokenstore.Store
	caller  CodeAssistCaller

	httpClient    *http.Client
	tokenURL      string
	refreshBuffer time.Duration

	mu            sync.Mutex
	active        []*tokenstore.Account
	currentIndex  int
	strategy      Strategy
	requestCount  int
	requestCounts map[string]int
	totalRequests map[string]int
	salt          string

	// per-account single-flight for refreshes
	flightMu sync.Mutex
	flights  map[string]*sync.Mutex

	watcher     *fsnotify.Watcher
	reloadMu    sync.Mutex
	reloadTimer *time.Timer
}

const watchDebounceInterval = 300 * time.Millisecond

// NewManager creates a manager; call Init before use.
func NewManager(opts Options) *Manager {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = constants.OAuthTokenURL
	}
	refreshBuffer := opts.RefreshBuffer
	if refreshBuffer <= 0 {
		refreshBuffer = constants.DefaultRefreshBuffer
	}
	requestCount := opts.RequestCount
	if requestCount <= 0 {
		requestCount = 10
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyRoundRobin
	}
	return &Manager{
		variant:       opts.Variant,
		store:         opts.Store,
		caller:        opts.Caller,
		httpClient:    httpClient,
		tokenURL:      tokenURL,
		refreshBuffer: refreshBuffer,
		strategy:      strategy,
		requestCount:  requestCount,
		requestCounts: make(map[string]int),
		totalRequests: make(map[string]int),
		flights:       make(map[string]*sync.Mutex),
	}
}

// Variant exposes the pool's upstream flavor.
func (m *Manager) Variant() upstream.Variant { return m.variant }

// Init loads the pool, drops disabled accounts from the active list and
// concurrently refreshes every expired account. Refreshes that fail with
// 400/403 disable the account; all disables are persisted in one batch.
func (m *Manager) Init(ctx context.Context) error {
	salt, err := m.store.Salt()
	if err != nil {
		return err
	}
	accounts, err := m.store.Load()
	if err != nil {
		return err
	}

	active := make([]*tokenstore.Account, 0, len(accounts))
	for _, acct := range accounts {
		if acct != nil && acct.Enable && acct.RefreshToken != "" {
			active = append(active, acct)
		}
	}

	m.mu.Lock()
	m.salt = salt
	m.active = active
	m.currentIndex = 0
	m.mu.Unlock()

	var wg sync.WaitGroup
	var disableMu sync.Mutex
	var disabled []string

	for _, acct := range active {
		if !acct.IsExpired(m.refreshBuffer) {
			continue
		}
		wg.Add(1)
		go func(a *tokenstore.Account) {
			defer wg.Done()
			if err := m.RefreshAccount(ctx, a); err != nil {
				if te, ok := err.(*TokenError); ok && te.IsAuthFailure() {
					disableMu.Lock()
					disabled = append(disabled, a.RefreshToken)
					disableMu.Unlock()
					return
				}
				log.WithError(err).Warnf("[%s] startup refresh failed for %s, keeping account",
					m.variant.Name, m.TokenIDFor(a.RefreshToken))
			}
		}(acct)
	}
	wg.Wait()

	for _, rt := range disabled {
		m.DisableByRefreshToken(rt, "refresh rejected at startup")
	}

	log.Infof("[%s] loaded %d account(s), %d active", m.variant.Name, len(accounts), m.activeLen())
	return nil
}

// Reload rebuilds the active list from the store. In-flight requests holding
// a stale clone complete against it; they are never retried on it.
func (m *Manager) Reload() error {
	accounts, err := m.store.Load()
	if err != nil {
		return err
	}
	active := make([]*tokenstore.Account, 0, len(accounts))
	for _, acct := range accounts {
		if acct != nil && acct.Enable && acct.RefreshToken != "" {
			active = append(active, acct)
		}
	}

	m.mu.Lock()
	m.active = active
	if m.currentIndex >= len(active) {
		m.currentIndex = 0
	}
	// Drop counters for accounts that disappeared.
	for rt := range m.requestCounts {
		found := false
		for _, acct := range active {
			if acct.RefreshToken == rt {
				found = true
				break
			}
		}
		if !found {
			delete(m.requestCounts, rt)
			delete(m.totalRequests, rt)
		}
	}
	m.mu.Unlock()

	log.Infof("[%s] reloaded pool, %d active account(s)", m.variant.Name, len(active))
	return nil
}

func (m *Manager) activeLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// TokenIDFor derives the admin-surface id for a refresh token.
func (m *Manager) TokenIDFor(refreshToken string) string {
	m.mu.Lock()
	salt := m.salt
	m.mu.Unlock()
	return tokenstore.TokenID(refreshToken, salt)
}

// GetToken returns a ready account clone or nil when none is available. It
// scans from the rotation index, refreshing expired candidates and (for
// variants that need it) bootstrapping the project id. Auth failures disable
// the candidate and the scan continues; other failures just skip it.
func (m *Manager) GetToken(ctx context.Context) *tokenstore.Account {
	n := m.activeLen()
	for i := 0; i < n; i++ {
		acct, pos := m.candidateAt(i)
		if acct == nil {
			break
		}
		if err := m.prepare(ctx, acct); err != nil {
			if te, ok := err.(*TokenError); ok && te.IsAuthFailure() {
				m.DisableByRefreshToken(acct.RefreshToken, te.Message)
			} else {
				log.WithError(err).Warnf("[%s] skipping account %s", m.variant.Name, m.TokenIDFor(acct.RefreshToken))
			}
			continue
		}
		m.advanceAfterSuccess(pos)
		return acct.Clone()
	}
	return nil
}

// candidateAt returns the i-th candidate from the rotation index, plus its
// position in the active list.
func (m *Manager) candidateAt(i int) (*tokenstore.Account, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.active) == 0 {
		return nil, 0
	}
	pos := (m.currentIndex + i) % len(m.active)
	return m.active[pos], pos
}

// prepare ensures the account has a fresh access token and, when the variant
// requires it, a project id.
func (m *Manager) prepare(ctx context.Context, acct *tokenstore.Account) error {
	if acct.IsExpired(m.refreshBuffer) {
		if err := m.RefreshAccount(ctx, acct); err != nil {
			return err
		}
	}
	if m.variant.RequiresProjectForChat && acct.ProjectID == "" {
		projectID, err := m.FetchProjectID(ctx, acct)
		if err != nil {
			return err
		}
		if projectID == "" {
			return &TokenError{
				Message: "project id bootstrap exhausted",
				TokenID: m.TokenIDFor(acct.RefreshToken),
				Status:  http.StatusForbidden,
			}
		}
	}
	return nil
}

// DisableByRefreshToken sets enable=false, persists and removes the account
// from the active list in one step.
func (m *Manager) DisableByRefreshToken(refreshToken, reason string) {
	m.mu.Lock()
	kept := m.active[:0]
	for _, acct := range m.active {
		if acct.RefreshToken == refreshToken {
			acct.Enable = false
			continue
		}
		kept = append(kept, acct)
	}
	m.active = kept
	if m.currentIndex >= len(m.active) {
		m.currentIndex = 0
	}
	delete(m.requestCounts, refreshToken)
	m.mu.Unlock()

	if err := m.persistMutation(refreshToken, func(a *tokenstore.Account) {
		a.Enable = false
	}); err != nil {
		log.WithError(err).Errorf("[%s] failed to persist disable", m.variant.Name)
	}
	log.Warnf("[%s] disabled account %s: %s", m.variant.Name, m.TokenIDFor(refreshToken), reason)
}

// persistMutation applies fn to the matching account through an atomic
// read-all / merge / write-all cycle on the store.
func (m *Manager) persistMutation(refreshToken string, fn func(*tokenstore.Account)) error {
	all, err := m.store.Load()
	if err != nil {
		return err
	}
	found := false
	for _, acct := range all {
		if acct != nil && acct.RefreshToken == refreshToken {
			fn(acct)
			found = true
		}
	}
	if !found {
		return nil
	}
	return m.store.Save(all)
}

// Watch reloads the pool when the backing account file changes on disk.
// Only file stores are watchable; other stores are a no-op.
func (m *Manager) Watch() error {
	fs, ok := m.store.(*tokenstore.FileStore)
	if !ok {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher

	dir := fs.Path()
	if idx := lastSlash(dir); idx >= 0 {
		dir = dir[:idx]
	}
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != fs.Path() {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				m.scheduleReload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warnf("[%s] account file watcher error", m.variant.Name)
			}
		}
	}()
	return nil
}

func (m *Manager) scheduleReload() {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	if m.reloadTimer != nil {
		m.reloadTimer.Stop()
	}
	m.reloadTimer = time.AfterFunc(watchDebounceInterval, func() {
		if err := m.Reload(); err != nil {
			log.WithError(err).Errorf("[%s] hot reload failed", m.variant.Name)
		}
	})
}

// Close stops the file watcher.
func (m *Manager) Close() {
	if m.watcher != nil {
		m.watcher.Close()
	}
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' || s[i] == '\\' {
			return i
		}
	}
	return -1
}
