package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"antigravity2api-go/internal/tokenstore"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// RefreshAccount exchanges the refresh token for a new access token and
// persists the result. Concurrent refreshes of the same account are
// deduplicated; the loser observes the winner's fields and returns nil.
func (m *Manager) RefreshAccount(ctx context.Context, acct *tokenstore.Account) error {
	flight := m.flightFor(acct.RefreshToken)
	flight.Lock()
	defer flight.Unlock()

	// Another flight may have refreshed while we waited.
	if !acct.IsExpired(m.refreshBuffer) {
		return nil
	}
	return m.doRefresh(ctx, acct)
}

func (m *Manager) flightFor(refreshToken string) *sync.Mutex {
	m.flightMu.Lock()
	defer m.flightMu.Unlock()
	if mu, ok := m.flights[refreshToken]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	m.flights[refreshToken] = mu
	return mu
}

func (m *Manager) doRefresh(ctx context.Context, acct *tokenstore.Account) error {
	conf := &oauth2.Config{
		ClientID:     m.variant.ClientID,
		ClientSecret: m.variant.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: m.tokenURL},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: acct.RefreshToken}).Token()
	if err != nil {
		if re, ok := err.(*oauth2.RetrieveError); ok {
			return &TokenError{
				Message: strings.TrimSpace(string(re.Body)),
				TokenID: m.TokenIDFor(acct.RefreshToken),
				Status:  re.Response.StatusCode,
			}
		}
		return &TokenError{Message: err.Error(), TokenID: m.TokenIDFor(acct.RefreshToken)}
	}
	if tok.AccessToken == "" {
		return &TokenError{
			Message: "token endpoint returned no access_token",
			TokenID: m.TokenIDFor(acct.RefreshToken),
		}
	}

	now := time.Now()
	expiresIn := int64(time.Until(tok.Expiry) / time.Second)
	if tok.Expiry.IsZero() || expiresIn <= 0 {
		expiresIn = 3600
	}

	m.mu.Lock()
	acct.AccessToken = tok.AccessToken
	acct.ExpiresIn = expiresIn
	acct.Timestamp = now.UnixMilli()
	m.mu.Unlock()

	if err := m.persistMutation(acct.RefreshToken, func(a *tokenstore.Account) {
		a.AccessToken = tok.AccessToken
		a.ExpiresIn = expiresIn
		a.Timestamp = now.UnixMilli()
	}); err != nil {
		log.WithError(err).Warnf("[%s] failed to persist refreshed token", m.variant.Name)
	}

	log.Debugf("[%s] refreshed token %s (expires in %ds)", m.variant.Name, m.TokenIDFor(acct.RefreshToken), expiresIn)
	return nil
}
