package constants

import "time"

// Upstream Code Assist endpoints. Antigravity uses the daily channel and falls
// back to the sandbox host; the Gemini CLI variant uses the production host.
const (
	CodeAssistEndpoint         = "https://cloudcode-pa.googleapis.com"
	AntigravityEndpointDaily   = "https://daily-cloudcode-pa.googleapis.com"
	AntigravityEndpointSandbox = "https://daily-cloudcode-pa-sandbox.googleapis.com"

	OAuthTokenURL = "https://oauth2.googleapis.com/token"
)

// OAuth clients. Each upstream variant carries its own client id/secret; these
// are the public installed-app credentials shipped with the respective clients.
const (
	GeminiCLIClientID     = "681255809395-oo8ft2oprdrnp9e3aqf6av3hmdib135j.apps.googleusercontent.com"
	GeminiCLIClientSecret = "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"

	AntigravityClientID     = "1071006060591-tmhssin2h21lcre235vtolojh4g403ep.apps.googleusercontent.com"
	AntigravityClientSecret = "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"
)

// HTTP 连接池配置
const (
	BaseMaxIdleConns        = 4096
	BaseMaxIdleConnsPerHost = 4096
	BaseIdleConnTimeout     = 90 * time.Second
	DefaultKeepAlive        = 30 * time.Second
)

// HTTP 超时配置
const (
	DefaultDialTimeout           = 10 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 60 * time.Second
	DefaultExpectContinueTimeout = 2 * time.Second
)
