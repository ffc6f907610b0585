package account

import (
	"antigravity2api-go/internal/tokenstore"
	log "github.com/sirupsen/logrus"
)

// advanceAfterSuccess moves the rotation index after a token grant at pos.
//
//	round_robin     — next account every time
//	request_count   — next account after N grants on the same token
//	quota_exhausted — stay until ReportQuotaExhausted says otherwise
func (m *Manager) advanceAfterSuccess(pos int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.active) == 0 {
		return
	}
	m.totalRequests[m.active[pos].RefreshToken]++

	switch m.strategy {
	case StrategyRoundRobin:
		m.currentIndex = (pos + 1) % len(m.active)
	case StrategyRequestCount:
		rt := m.active[pos].RefreshToken
		m.requestCounts[rt]++
		if m.requestCounts[rt] >= m.requestCount {
			delete(m.requestCounts, rt)
			m.currentIndex = (pos + 1) % len(m.active)
		} else {
			m.currentIndex = pos
		}
	case StrategyQuotaExhausted:
		m.currentIndex = pos
	}
}

// ReportQuotaExhausted marks the account out of quota and, under the
// quota_exhausted strategy, advances past it. A later reload or admin edit
// restores it.
func (m *Manager) ReportQuotaExhausted(refreshToken string) {
	m.mu.Lock()
	for i, acct := range m.active {
		if acct.RefreshToken != refreshToken {
			continue
		}
		f := false
		acct.HasQuota = &f
		if m.strategy == StrategyQuotaExhausted && m.currentIndex == i {
			m.currentIndex = (i + 1) % len(m.active)
		}
		break
	}
	m.mu.Unlock()

	f := false
	if err := m.persistMutation(refreshToken, func(a *tokenstore.Account) {
		a.HasQuota = &f
	}); err != nil {
		log.WithError(err).Warnf("[%s] failed to persist quota flag", m.variant.Name)
	}
	log.Infof("[%s] account %s reported quota exhausted", m.variant.Name, m.TokenIDFor(refreshToken))
}

// UpdateRotationConfig swaps the strategy at runtime and resets rotation
// state so the new strategy starts clean.
func (m *Manager) UpdateRotationConfig(strategy Strategy, requestCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategy = strategy
	if requestCount > 0 {
		m.requestCount = requestCount
	}
	m.requestCounts = make(map[string]int)
	m.currentIndex = 0
}

// RotationConfig reports the live strategy, mostly for the admin surface.
func (m *Manager) RotationConfig() (Strategy, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strategy, m.requestCount
}

// requestsServed reports the lifetime grant count for one account. The counter
// survives strategy switches and resets only when the account leaves the pool.
func (m *Manager) requestsServed(refreshToken string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalRequests[refreshToken]
}
