package account

import (
	"context"
	"net/http"
	"time"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/tokenstore"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var clientMetadata = map[string]interface{}{
	"ideType":    "IDE_UNSPECIFIED",
	"platform":   "PLATFORM_UNSPECIFIED",
	"pluginType": "GEMINI",
}

// FetchProjectID resolves the Cloud AI Companion project for an account,
// onboarding it onto the default tier when loadCodeAssist reports none. The
// resolved id is written to the account and persisted.
func (m *Manager) FetchProjectID(ctx context.Context, acct *tokenstore.Account) (string, error) {
	projectID, err := m.loadProject(ctx, acct.AccessToken)
	if err != nil {
		return "", err
	}
	if projectID == "" {
		projectID, err = m.onboardProject(ctx, acct.AccessToken)
		if err != nil {
			return "", err
		}
	}
	if projectID == "" {
		return "", nil
	}

	m.mu.Lock()
	acct.ProjectID = projectID
	m.mu.Unlock()

	if err := m.persistMutation(acct.RefreshToken, func(a *tokenstore.Account) {
		a.ProjectID = projectID
	}); err != nil {
		log.WithError(err).Warnf("[%s] failed to persist project id", m.variant.Name)
	}
	log.Infof("[%s] resolved project %s for account %s", m.variant.Name, projectID, m.TokenIDFor(acct.RefreshToken))
	return projectID, nil
}

// loadProject asks loadCodeAssist for the current tier's project. An empty
// return with nil error means the account has no tier yet and must onboard.
func (m *Manager) loadProject(ctx context.Context, bearer string) (string, error) {
	payload, _ := sjson.SetBytes([]byte(`{}`), "metadata", clientMetadata)
	body, status, err := m.caller.Action(ctx, "loadCodeAssist", bearer, payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", m.upstreamTokenError("loadCodeAssist", status, body)
	}
	if !gjson.GetBytes(body, "currentTier").Exists() {
		return "", nil
	}
	return projectFromResult(gjson.GetBytes(body, "cloudaicompanionProject")), nil
}

// onboardProject enrolls the account on its default tier and polls the
// long-running operation until it yields a project.
func (m *Manager) onboardProject(ctx context.Context, bearer string) (string, error) {
	payload, _ := sjson.SetBytes([]byte(`{}`), "tierId", m.defaultTier(ctx, bearer))
	payload, _ = sjson.SetBytes(payload, "metadata", clientMetadata)
	payload, _ = sjson.SetBytes(payload, "cloudaicompanionProject", "default")

	for attempt := 0; attempt < constants.OnboardMaxAttempts; attempt++ {
		body, status, err := m.caller.Action(ctx, "onboardUser", bearer, payload)
		if err != nil {
			return "", err
		}
		if status != http.StatusOK {
			return "", m.upstreamTokenError("onboardUser", status, body)
		}
		if gjson.GetBytes(body, "done").Bool() {
			return projectFromResult(gjson.GetBytes(body, "response.cloudaicompanionProject")), nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(constants.OnboardPollInterval):
		}
	}
	return "", nil
}

// defaultTier picks the tier flagged isDefault from loadCodeAssist, falling
// back to free-tier.
func (m *Manager) defaultTier(ctx context.Context, bearer string) string {
	payload, _ := sjson.SetBytes([]byte(`{}`), "metadata", clientMetadata)
	body, status, err := m.caller.Action(ctx, "loadCodeAssist", bearer, payload)
	if err != nil || status != http.StatusOK {
		return "free-tier"
	}
	tier := "free-tier"
	gjson.GetBytes(body, "allowedTiers").ForEach(func(_, t gjson.Result) bool {
		if t.Get("isDefault").Bool() {
			tier = t.Get("id").String()
			return false
		}
		return true
	})
	return tier
}

// projectFromResult accepts both wire shapes: a bare string or {"id": ...}.
func projectFromResult(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.String()
	}
	return r.Get("id").String()
}

func (m *Manager) upstreamTokenError(action string, status int, body []byte) error {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = action + " failed"
	}
	return &TokenError{Message: msg, Status: status}
}
