package translator

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// GeminiToUpstream normalizes a native generateContent body for the upstream.
// Contents pass through with signature rebalancing; tool declarations get the
// same name/schema treatment as the other dialects.
func (c *Converter) GeminiToUpstream(requestedModel string, rawJSON []byte) (*Upstream, error) {
	model, features := ParseModelFeatures(requestedModel)

	out := `{"contents":[]}`

	hasTools := geminiHasFunctionTools(rawJSON)

	var contents []interface{}
	if raw := gjson.GetBytes(rawJSON, "contents"); raw.Exists() {
		if err := json.Unmarshal([]byte(raw.Raw), &contents); err != nil {
			contents = nil
		}
	}
	c.applyHistorySignatures(contents, model, hasTools)
	contentsJSON, _ := json.Marshal(contents)
	out, _ = sjson.SetRaw(out, "contents", string(contentsJSON))

	if sys := gjson.GetBytes(rawJSON, "systemInstruction"); sys.Exists() {
		out, _ = sjson.SetRaw(out, "systemInstruction", sys.Raw)
	} else if sys := gjson.GetBytes(rawJSON, "system_instruction"); sys.Exists() {
		out, _ = sjson.SetRaw(out, "systemInstruction", sys.Raw)
	}

	genConfig := buildGenerationConfig(rawJSON, DialectGemini, model, features)
	genJSON, _ := json.Marshal(genConfig)
	out, _ = sjson.SetRaw(out, "generationConfig", string(genJSON))

	out = c.applyGeminiTools(out, rawJSON, model, features)

	if ss := gjson.GetBytes(rawJSON, "safetySettings"); ss.Exists() {
		out, _ = sjson.SetRaw(out, "safetySettings", ss.Raw)
	}

	return &Upstream{
		Model:    model,
		Request:  []byte(out),
		HasTools: hasTools,
		Features: features,
	}, nil
}

func geminiHasFunctionTools(rawJSON []byte) bool {
	for _, tool := range gjson.GetBytes(rawJSON, "tools").Array() {
		if len(tool.Get("functionDeclarations").Array()) > 0 {
			return true
		}
	}
	return false
}

func (c *Converter) applyGeminiTools(out string, rawJSON []byte, model string, f Features) string {
	var tools []interface{}
	for _, tool := range gjson.GetBytes(rawJSON, "tools").Array() {
		decls := tool.Get("functionDeclarations")
		if !decls.Exists() {
			// googleSearch and friends pass through untouched.
			var generic interface{}
			if err := json.Unmarshal([]byte(tool.Raw), &generic); err == nil {
				tools = append(tools, generic)
			}
			continue
		}
		var cleaned []interface{}
		for _, fn := range decls.Array() {
			name := fn.Get("name").String()
			safe := name
			if c.Names != nil {
				safe = c.Names.Register(model, name)
			}
			decl := map[string]interface{}{
				"name":       safe,
				"parameters": cleanParameters(fn.Get("parameters")),
			}
			if desc := fn.Get("description").String(); desc != "" {
				decl["description"] = desc
			}
			cleaned = append(cleaned, decl)
		}
		if len(cleaned) > 0 {
			tools = append(tools, map[string]interface{}{"functionDeclarations": cleaned})
		}
	}
	if f.Search {
		tools = append(tools, map[string]interface{}{"googleSearch": map[string]interface{}{}})
	}
	if len(tools) == 0 {
		return out
	}
	toolsJSON, _ := json.Marshal(tools)
	out, _ = sjson.SetRaw(out, "tools", string(toolsJSON))

	if tc := gjson.GetBytes(rawJSON, "toolConfig"); tc.Exists() {
		out, _ = sjson.SetRaw(out, "toolConfig", tc.Raw)
	}
	return out
}

// GeminiResponse rebuilds the native generateContent body from the parsed
// parts, with tool names resolved back to the caller's originals.
func (c *Converter) GeminiResponse(p Parsed) []byte {
	var parts []map[string]interface{}
	if p.Reasoning != "" {
		part := map[string]interface{}{"text": p.Reasoning, "thought": true}
		if c.PassSignatureToClient && p.ReasoningSignature != "" {
			part["thoughtSignature"] = p.ReasoningSignature
		}
		parts = append(parts, part)
	}
	for _, tc := range p.ToolCalls {
		var args interface{}
		if err := json.Unmarshal([]byte(tc.ArgsJSON), &args); err != nil {
			args = map[string]interface{}{}
		}
		parts = append(parts, map[string]interface{}{
			"functionCall": map[string]interface{}{
				"name": tc.Name,
				"args": args,
			},
		})
	}
	if p.Content != "" || len(parts) == 0 {
		parts = append(parts, map[string]interface{}{"text": p.Content})
	}

	finishReason := p.FinishReason
	if finishReason == "" {
		finishReason = "STOP"
	}
	body := map[string]interface{}{
		"candidates": []map[string]interface{}{{
			"index": 0,
			"content": map[string]interface{}{
				"role":  "model",
				"parts": parts,
			},
			"finishReason": finishReason,
		}},
	}
	if p.Usage != nil {
		body["usageMetadata"] = map[string]interface{}{
			"promptTokenCount":     p.Usage.Prompt,
			"candidatesTokenCount": p.Usage.Completion,
			"totalTokenCount":      p.Usage.Total,
		}
	}

	out, _ := json.Marshal(body)
	return out
}

// BuildEnvelope wraps the inner request in the v1internal envelope.
func BuildEnvelope(model, project string, request []byte) []byte {
	out := `{}`
	out, _ = sjson.Set(out, "model", model)
	if project != "" {
		out, _ = sjson.Set(out, "project", project)
	}
	out, _ = sjson.SetRaw(out, "request", string(request))
	return []byte(out)
}
