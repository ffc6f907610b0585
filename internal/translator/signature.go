package translator

import (
	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/sigcache"
)

func cacheSetOpts(hasTools bool, model string) sigcache.SetOptions {
	return sigcache.SetOptions{HasTools: hasTools, IsImageModel: IsImageModel(model)}
}

// Per-model signature defaults used when the cache has nothing. These are
// known-good continuation tokens for the listed models; everything else falls
// through to the validator-skip sentinel.
var defaultSignatures = map[string]string{}

// ResolveSignature picks the signature to replay on prior-turn parts:
// cache first, then the per-model default, then the sentinel.
func (c *Converter) ResolveSignature(model string, hasTools bool) string {
	if c.Cache != nil {
		if entry, ok := c.Cache.Get("", model, hasTools); ok && entry.Signature != "" {
			return entry.Signature
		}
	}
	if sig, ok := defaultSignatures[model]; ok && sig != "" {
		return sig
	}
	return constants.SkipThoughtSignature
}

// attachSignature sets thoughtSignature on a part if absent.
func attachSignature(part map[string]interface{}, sig string) {
	if sig == "" {
		return
	}
	if _, ok := part["thoughtSignature"]; !ok {
		part["thoughtSignature"] = sig
	}
}

// rebalanceSignatureParts folds standalone thoughtSignature placeholders onto
// the adjacent thought, functionCall or inlineData part, then drops the
// placeholders. Some clients echo history with signatures detached from the
// parts they belong to.
func rebalanceSignatureParts(parts []interface{}) []interface{} {
	out := make([]interface{}, 0, len(parts))
	var pending string

	carrier := func(mp map[string]interface{}) bool {
		if _, ok := mp["functionCall"]; ok {
			return true
		}
		if _, ok := mp["inlineData"]; ok {
			return true
		}
		if t, ok := mp["thought"].(bool); ok && t {
			return true
		}
		return false
	}

	for _, item := range parts {
		mp, ok := item.(map[string]interface{})
		if !ok {
			out = append(out, item)
			continue
		}

		// A part holding only a signature is a placeholder.
		if sig, ok := mp["thoughtSignature"].(string); ok && sig != "" && len(mp) == 1 {
			// Prefer attaching backwards to the preceding carrier.
			if n := len(out); n > 0 {
				if prev, ok := out[n-1].(map[string]interface{}); ok && carrier(prev) {
					attachSignature(prev, sig)
					continue
				}
			}
			pending = sig
			continue
		}

		if pending != "" && carrier(mp) {
			attachSignature(mp, pending)
			pending = ""
		}
		out = append(out, mp)
	}
	return out
}

// applyHistorySignatures walks converted model-role contents and makes sure
// reasoning and functionCall parts carry a replayable signature. Tool-call
// parts always get the tool-bucket signature — tool continuation needs it
// even with thinking disabled.
func (c *Converter) applyHistorySignatures(contents []interface{}, model string, hasTools bool) {
	reasoningSig := c.ResolveSignature(model, false)
	toolSig := c.ResolveSignature(model, true)
	_ = hasTools

	for _, item := range contents {
		msg, ok := item.(map[string]interface{})
		if !ok || msg["role"] != "model" {
			continue
		}
		parts, ok := msg["parts"].([]interface{})
		if !ok {
			continue
		}
		parts = rebalanceSignatureParts(parts)
		for _, p := range parts {
			mp, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			if t, ok := mp["thought"].(bool); ok && t {
				attachSignature(mp, reasoningSig)
			}
			if _, ok := mp["functionCall"]; ok {
				attachSignature(mp, toolSig)
			}
		}
		msg["parts"] = parts
	}
}
