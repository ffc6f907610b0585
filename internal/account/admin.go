package account

import (
	"context"
	"errors"
	"time"

	"antigravity2api-go/internal/tokenstore"
	log "github.com/sirupsen/logrus"
)

// ErrTokenNotFound is returned by the *ByID operations when no stored account
// hashes to the given id.
var ErrTokenNotFound = errors.New("token not found")

// TokenInfo is the admin-surface view of an account. Secrets never leave the
// store; accounts are addressed by the salted hash of their refresh token.
type TokenInfo struct {
	TokenID   string `json:"tokenId"`
	Email     string `json:"email,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Enable    bool   `json:"enable"`
	Expired   bool   `json:"expired"`
	HasQuota  *bool  `json:"hasQuota,omitempty"`
	Requests  int    `json:"requests"`
}

// TokenUpdate carries the mutable fields for UpdateTokenByID. Nil pointers
// leave the field untouched.
type TokenUpdate struct {
	Enable    *bool   `json:"enable,omitempty"`
	Email     *string `json:"email,omitempty"`
	ProjectID *string `json:"projectId,omitempty"`
	HasQuota  *bool   `json:"hasQuota,omitempty"`
}

// ListTokens returns every stored account, including disabled ones.
func (m *Manager) ListTokens() ([]TokenInfo, error) {
	all, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	infos := make([]TokenInfo, 0, len(all))
	for _, acct := range all {
		if acct == nil {
			continue
		}
		infos = append(infos, TokenInfo{
			TokenID:   m.TokenIDFor(acct.RefreshToken),
			Email:     acct.Email,
			ProjectID: acct.ProjectID,
			Enable:    acct.Enable,
			Expired:   acct.IsExpired(0),
			HasQuota:  acct.HasQuota,
			Requests:  m.requestsServed(acct.RefreshToken),
		})
	}
	return infos, nil
}

// AddToken stores a new account keyed by its refresh token. Re-adding an
// existing refresh token overwrites the stored entry in place.
func (m *Manager) AddToken(acct *tokenstore.Account) (string, error) {
	if acct == nil || acct.RefreshToken == "" {
		return "", errors.New("refresh_token is required")
	}
	acct.Enable = true
	if acct.Timestamp == 0 && acct.AccessToken != "" {
		acct.Timestamp = time.Now().UnixMilli()
	}

	all, err := m.store.Load()
	if err != nil {
		return "", err
	}
	replaced := false
	for i, existing := range all {
		if existing != nil && existing.RefreshToken == acct.RefreshToken {
			all[i] = acct
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, acct)
	}
	if err := m.store.Save(all); err != nil {
		return "", err
	}
	if err := m.Reload(); err != nil {
		return "", err
	}
	log.Infof("[%s] stored account %s", m.variant.Name, m.TokenIDFor(acct.RefreshToken))
	return m.TokenIDFor(acct.RefreshToken), nil
}

// UpdateTokenByID applies the non-nil fields of upd to the matching account.
func (m *Manager) UpdateTokenByID(tokenID string, upd TokenUpdate) error {
	acct, err := m.findByID(tokenID)
	if err != nil {
		return err
	}
	err = m.persistMutation(acct.RefreshToken, func(a *tokenstore.Account) {
		if upd.Enable != nil {
			a.Enable = *upd.Enable
		}
		if upd.Email != nil {
			a.Email = *upd.Email
		}
		if upd.ProjectID != nil {
			a.ProjectID = *upd.ProjectID
		}
		if upd.HasQuota != nil {
			a.HasQuota = upd.HasQuota
		}
	})
	if err != nil {
		return err
	}
	return m.Reload()
}

// DeleteTokenByID removes the matching account from the store.
func (m *Manager) DeleteTokenByID(tokenID string) error {
	all, err := m.store.Load()
	if err != nil {
		return err
	}
	kept := all[:0]
	found := false
	for _, acct := range all {
		if acct != nil && m.TokenIDFor(acct.RefreshToken) == tokenID {
			found = true
			continue
		}
		kept = append(kept, acct)
	}
	if !found {
		return ErrTokenNotFound
	}
	if err := m.store.Save(kept); err != nil {
		return err
	}
	return m.Reload()
}

// RefreshTokenByID forces a refresh of the matching account regardless of
// expiry.
func (m *Manager) RefreshTokenByID(ctx context.Context, tokenID string) error {
	acct, err := m.findByID(tokenID)
	if err != nil {
		return err
	}
	if err := m.doRefresh(ctx, acct); err != nil {
		return err
	}
	return m.Reload()
}

// FetchProjectIDByID re-runs project bootstrap for the matching account.
func (m *Manager) FetchProjectIDByID(ctx context.Context, tokenID string) (string, error) {
	acct, err := m.findByID(tokenID)
	if err != nil {
		return "", err
	}
	if acct.IsExpired(m.refreshBuffer) {
		if err := m.RefreshAccount(ctx, acct); err != nil {
			return "", err
		}
	}
	projectID, err := m.FetchProjectID(ctx, acct)
	if err != nil {
		return "", err
	}
	if err := m.Reload(); err != nil {
		return "", err
	}
	return projectID, nil
}

// ExportTokens returns the raw account list, secrets included. The management
// surface gates this behind the admin password.
func (m *Manager) ExportTokens() ([]*tokenstore.Account, error) {
	return m.store.Load()
}

// ImportTokens merges accounts into the store, keyed by refresh token.
// Returns the number of newly added accounts.
func (m *Manager) ImportTokens(accounts []*tokenstore.Account) (int, error) {
	all, err := m.store.Load()
	if err != nil {
		return 0, err
	}
	existing := make(map[string]int, len(all))
	for i, acct := range all {
		if acct != nil {
			existing[acct.RefreshToken] = i
		}
	}
	added := 0
	for _, acct := range accounts {
		if acct == nil || acct.RefreshToken == "" {
			continue
		}
		if i, ok := existing[acct.RefreshToken]; ok {
			all[i] = acct
			continue
		}
		all = append(all, acct)
		existing[acct.RefreshToken] = len(all) - 1
		added++
	}
	if err := m.store.Save(all); err != nil {
		return 0, err
	}
	if err := m.Reload(); err != nil {
		return 0, err
	}
	return added, nil
}

// findByID resolves a token id to the live account pointer when active, or a
// fresh pointer loaded from the store otherwise.
func (m *Manager) findByID(tokenID string) (*tokenstore.Account, error) {
	m.mu.Lock()
	for _, acct := range m.active {
		if tokenstore.TokenID(acct.RefreshToken, m.salt) == tokenID {
			m.mu.Unlock()
			return acct, nil
		}
	}
	m.mu.Unlock()

	all, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	for _, acct := range all {
		if acct != nil && m.TokenIDFor(acct.RefreshToken) == tokenID {
			return acct, nil
		}
	}
	return nil, ErrTokenNotFound
}
