package translator

import "strings"

// Feature prefixes and suffixes carried by model names. They toggle proxy
// behavior and never reach the upstream API.
const (
	prefixFakeStream     = "假流式/"
	prefixAntiTruncation = "流式抗截断/"
	suffixMaxThinking    = "-maxthinking"
	suffixNoThinking     = "-nothinking"
	suffixSearch         = "-search"
)

// Features are the behavior flags encoded in a requested model name.
type Features struct {
	FakeStream     bool
	AntiTruncation bool
	MaxThinking    bool
	NoThinking     bool
	Search         bool
}

// ParseModelFeatures strips the known prefixes/suffixes from a requested
// model name and returns the real upstream model plus the toggled flags.
func ParseModelFeatures(model string) (string, Features) {
	var f Features

	for {
		switch {
		case strings.HasPrefix(model, prefixFakeStream):
			model = strings.TrimPrefix(model, prefixFakeStream)
			f.FakeStream = true
		case strings.HasPrefix(model, prefixAntiTruncation):
			model = strings.TrimPrefix(model, prefixAntiTruncation)
			f.AntiTruncation = true
		default:
			goto suffixes
		}
	}

suffixes:
	for {
		switch {
		case strings.HasSuffix(model, suffixMaxThinking):
			model = strings.TrimSuffix(model, suffixMaxThinking)
			f.MaxThinking = true
		case strings.HasSuffix(model, suffixNoThinking):
			model = strings.TrimSuffix(model, suffixNoThinking)
			f.NoThinking = true
		case strings.HasSuffix(model, suffixSearch):
			model = strings.TrimSuffix(model, suffixSearch)
			f.Search = true
		default:
			return model, f
		}
	}
}

// IsImageModel reports whether the upstream model emits images; image models
// bypass fake-non-stream and use the image signature bucket.
func IsImageModel(model string) bool {
	return strings.Contains(model, "image")
}
