// Package models enumerates the upstream models each variant serves and
// expands the feature-flag aliases exposed through the list endpoints.
package models

import "time"

// Base model ids per upstream variant.
var (
	antigravityModels = []string{
		"gemini-3-pro-preview",
		"gemini-2.5-pro",
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
		"gemini-2.5-flash-image",
	}
	cliModels = []string{
		"gemini-2.5-pro",
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
	}
)

// Antigravity returns the model ids the Antigravity pool serves, with
// thinking/search aliases.
func Antigravity() []string {
	return expand(antigravityModels, false)
}

// CLI returns the model ids the CLI pool serves, including the fake-stream
// and anti-truncation prefix aliases.
func CLI() []string {
	return expand(cliModels, true)
}

func expand(base []string, cliPrefixes bool) []string {
	var out []string
	for _, m := range base {
		out = append(out, m)
		out = append(out, m+"-search")
		if thinkingCapable(m) {
			out = append(out, m+"-maxthinking", m+"-nothinking")
		}
	}
	if cliPrefixes {
		n := len(out)
		for i := 0; i < n; i++ {
			out = append(out, "假流式/"+out[i])
			out = append(out, "流式抗截断/"+out[i])
		}
	}
	return out
}

func thinkingCapable(model string) bool {
	switch model {
	case "gemini-2.5-flash-image":
		return false
	default:
		return true
	}
}

// OpenAIList renders /v1/models.
func OpenAIList(ids []string) map[string]interface{} {
	created := time.Now().Unix()
	var data []map[string]interface{}
	for _, id := range ids {
		data = append(data, map[string]interface{}{
			"id":       id,
			"object":   "model",
			"created":  created,
			"owned_by": "google",
		})
	}
	return map[string]interface{}{"object": "list", "data": data}
}

// GeminiList renders /v1beta/models.
func GeminiList(ids []string) map[string]interface{} {
	var data []map[string]interface{}
	for _, id := range ids {
		data = append(data, map[string]interface{}{
			"name":                       "models/" + id,
			"displayName":                id,
			"supportedGenerationMethods": []string{"generateContent", "streamGenerateContent"},
		})
	}
	return map[string]interface{}{"models": data}
}
