package constants

const (
	// DefaultTopK 是生成请求的默认 topK。
	DefaultTopK = 64
	// MaxTopK 是允许的最大 topK。
	MaxTopK = 64
	// MaxOutputTokens 是生成响应允许的最大输出 token 数。
	MaxOutputTokens = 65535

	// ThinkingBudgetMax forces the maximum reasoning budget (-maxthinking).
	ThinkingBudgetMax = 32768
)

// SkipThoughtSignature is the upstream validator bypass sentinel. It is a
// last-resort fallback, used only when neither the cache nor the per-model
// defaults yield a signature.
const SkipThoughtSignature = "skip_thought_signature_validator"
