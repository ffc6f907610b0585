package upstream

import (
	"fmt"
	"runtime"

	"antigravity2api-go/internal/constants"
)

// Variant describes one of the two upstream Code Assist flavors. They differ
// in host, User-Agent fingerprint, OAuth client and project requirements.
type Variant struct {
	Name      string
	BaseURLs  []string
	UserAgent string

	ClientID     string
	ClientSecret string

	// RequiresProjectForChat: Antigravity needs a projectId on every chat
	// call; the CLI variant only needs it for v1internal actions.
	RequiresProjectForChat bool

	// AccountsFile is the pool file name under the data directory.
	AccountsFile string
}

// Antigravity returns the daily-channel variant with sandbox fallback.
func Antigravity() Variant {
	return Variant{
		Name: "antigravity",
		BaseURLs: []string{
			constants.AntigravityEndpointDaily,
			constants.AntigravityEndpointSandbox,
		},
		UserAgent:              fmt.Sprintf("antigravity/1.16.5 %s/%s", runtime.GOOS, runtime.GOARCH),
		ClientID:               constants.AntigravityClientID,
		ClientSecret:           constants.AntigravityClientSecret,
		RequiresProjectForChat: true,
		AccountsFile:           "accounts.json",
	}
}

// GeminiCLI returns the production Code Assist variant.
func GeminiCLI() Variant {
	return Variant{
		Name:                   "geminicli",
		BaseURLs:               []string{constants.CodeAssistEndpoint},
		UserAgent:              fmt.Sprintf("GeminiCLI/0.4.1 (%s; %s)", runtime.GOOS, runtime.GOARCH),
		ClientID:               constants.GeminiCLIClientID,
		ClientSecret:           constants.GeminiCLIClientSecret,
		RequiresProjectForChat: false,
		AccountsFile:           "geminicli_accounts.json",
	}
}
