// Package translator converts the three public chat dialects to and from the
// upstream Code Assist wire format.
package translator

import (
	"antigravity2api-go/internal/imagestore"
	"antigravity2api-go/internal/sigcache"
	log "github.com/sirupsen/logrus"
)

// Dialect identifies a public chat protocol.
type Dialect string

const (
	DialectOpenAI Dialect = "openai"
	DialectGemini Dialect = "gemini"
	DialectClaude Dialect = "claude"
)

// Converter carries the shared state request conversion needs: the signature
// cache for replay and the per-model tool-name tables. One instance serves
// both upstream variants.
type Converter struct {
	Cache *sigcache.Cache
	Names *NameTable

	// Images is the sidecar inline images from image models are saved to.
	// Nil keeps them inline as data URLs.
	Images *imagestore.Store

	// PassSignatureToClient controls whether thought signatures captured
	// from the upstream appear in client-visible responses.
	PassSignatureToClient bool
}

// NewConverter wires a converter around the process-wide signature cache.
func NewConverter(cache *sigcache.Cache, passSignature bool) *Converter {
	return &Converter{
		Cache:                 cache,
		Names:                 NewNameTable(),
		PassSignatureToClient: passSignature,
	}
}

// ImageText turns one upstream inlineData part into the text reference the
// dialects surface: a markdown link to the saved sidecar file, or an inline
// data URL when no store is wired or the save fails.
func (c *Converter) ImageText(mimeType, data string) string {
	if c.Images != nil {
		url, err := c.Images.Save(mimeType, data)
		if err == nil {
			return "![image](" + url + ")"
		}
		log.WithError(err).Warn("image sidecar save failed, falling back to data url")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "![image](data:" + mimeType + ";base64," + data + ")"
}

// Upstream is a fully converted request ready for the envelope.
type Upstream struct {
	// Model is the real upstream model, feature prefixes stripped.
	Model string
	// Request is the inner request object (contents, generationConfig, ...).
	Request []byte
	// HasTools records whether the request declares tools; it selects the
	// signature bucket on both the request and response paths.
	HasTools bool
	// Features are the flags the model name toggled.
	Features Features
}
