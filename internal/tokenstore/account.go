package tokenstore

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Account is one upstream Google account. Identity is the refresh token;
// admin surfaces only ever see the derived TokenID.
type Account struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresIn is the token lifetime in seconds, Timestamp the issue time in
	// milliseconds since epoch.
	ExpiresIn int64 `json:"expires_in"`
	Timestamp int64 `json:"timestamp"`
	Enable    bool  `json:"enable"`

	Email     string `json:"email,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	HasQuota  *bool  `json:"hasQuota,omitempty"`
}

// IsExpired reports whether the access token is past (or within buffer of)
// its nominal expiry.
func (a *Account) IsExpired(buffer time.Duration) bool {
	if a.AccessToken == "" {
		return true
	}
	expiry := time.UnixMilli(a.Timestamp).Add(time.Duration(a.ExpiresIn) * time.Second)
	return !time.Now().Before(expiry.Add(-buffer))
}

// Clone returns a copy safe to hand out as a read-only view.
func (a *Account) Clone() *Account {
	cp := *a
	if a.HasQuota != nil {
		v := *a.HasQuota
		cp.HasQuota = &v
	}
	return &cp
}

// TokenID derives the stable opaque id used on admin surfaces so raw refresh
// tokens never leave the process.
func TokenID(refreshToken, salt string) string {
	sum := sha256.Sum256([]byte(refreshToken + salt))
	return hex.EncodeToString(sum[:])
}
