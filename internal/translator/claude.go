package translator

import (
	"encoding/json"

	"antigravity2api-go/internal/constants"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ClaudeToUpstream converts an Anthropic Messages body into the inner
// upstream request.
func (c *Converter) ClaudeToUpstream(rawJSON []byte) (*Upstream, error) {
	requested := gjson.GetBytes(rawJSON, "model").String()
	model, features := ParseModelFeatures(requested)

	out := `{"contents":[]}`

	hasTools := len(gjson.GetBytes(rawJSON, "tools").Array()) > 0
	contents := c.claudeMessages(rawJSON, model)
	c.applyHistorySignatures(contents, model, hasTools)

	contentsJSON, _ := json.Marshal(contents)
	out, _ = sjson.SetRaw(out, "contents", string(contentsJSON))

	if systemParts := claudeSystemParts(rawJSON); len(systemParts) > 0 {
		sysJSON, _ := json.Marshal(map[string]interface{}{"parts": systemParts})
		out, _ = sjson.SetRaw(out, "systemInstruction", string(sysJSON))
	}

	genConfig := buildGenerationConfig(rawJSON, DialectClaude, model, features)
	genJSON, _ := json.Marshal(genConfig)
	out, _ = sjson.SetRaw(out, "generationConfig", string(genJSON))

	out = c.applyClaudeTools(out, rawJSON, model, features)

	return &Upstream{
		Model:    model,
		Request:  []byte(out),
		HasTools: hasTools,
		Features: features,
	}, nil
}

// claudeSystemParts accepts both shapes: a plain string and a block list.
func claudeSystemParts(rawJSON []byte) []interface{} {
	system := gjson.GetBytes(rawJSON, "system")
	if !system.Exists() {
		return nil
	}
	var parts []interface{}
	if system.IsArray() {
		for _, block := range system.Array() {
			if block.Get("type").String() == "text" {
				parts = append(parts, map[string]interface{}{"text": block.Get("text").String()})
			}
		}
		return parts
	}
	if system.String() != "" {
		parts = append(parts, map[string]interface{}{"text": system.String()})
	}
	return parts
}

func (c *Converter) claudeMessages(rawJSON []byte, model string) []interface{} {
	var contents []interface{}
	toolSig := c.ResolveSignature(model, true)

	// tool_use ids map to names so tool_result blocks can name their call.
	toolIDToName := make(map[string]string)

	for _, msg := range gjson.GetBytes(rawJSON, "messages").Array() {
		role := msg.Get("role").String()
		content := msg.Get("content")

		switch role {
		case "user":
			var parts []interface{}
			if content.IsArray() {
				for _, block := range content.Array() {
					switch block.Get("type").String() {
					case "text":
						parts = append(parts, map[string]interface{}{"text": block.Get("text").String()})
					case "image":
						if block.Get("source.type").String() == "base64" {
							parts = append(parts, map[string]interface{}{
								"inlineData": map[string]interface{}{
									"mimeType": block.Get("source.media_type").String(),
									"data":     block.Get("source.data").String(),
								},
							})
						}
					case "tool_result":
						parts = append(parts, claudeToolResult(block, toolIDToName))
					}
				}
			} else if content.String() != "" {
				parts = append(parts, map[string]interface{}{"text": content.String()})
			}
			if len(parts) > 0 {
				contents = append(contents, map[string]interface{}{"role": "user", "parts": parts})
			}

		case "assistant":
			var parts []interface{}
			if content.IsArray() {
				for _, block := range content.Array() {
					switch block.Get("type").String() {
					case "text":
						parts = append(parts, map[string]interface{}{"text": block.Get("text").String()})
					case "thinking":
						part := map[string]interface{}{
							"thought": true,
							"text":    block.Get("thinking").String(),
						}
						if sig := block.Get("signature").String(); sig != "" {
							part["thoughtSignature"] = sig
						}
						parts = append(parts, part)
					case "tool_use":
						name := block.Get("name").String()
						id := block.Get("id").String()
						if id != "" {
							toolIDToName[id] = name
						}
						safe := name
						if c.Names != nil {
							safe = c.Names.Register(model, name)
						}
						part := map[string]interface{}{
							"functionCall": map[string]interface{}{
								"name": safe,
								"args": block.Get("input").Value(),
							},
						}
						if sig := block.Get("signature").String(); sig != "" {
							part["thoughtSignature"] = sig
						} else {
							attachSignature(part, toolSig)
						}
						parts = append(parts, part)
					}
				}
			} else if content.String() != "" {
				parts = append(parts, map[string]interface{}{"text": content.String()})
			}
			if len(parts) > 0 {
				contents = append(contents, map[string]interface{}{"role": "model", "parts": parts})
			}
		}
	}
	return contents
}

func claudeToolResult(block gjson.Result, toolIDToName map[string]string) map[string]interface{} {
	id := block.Get("tool_use_id").String()
	name := toolIDToName[id]
	if name == "" {
		name = id
	}

	var response interface{}
	content := block.Get("content")
	switch {
	case content.IsArray():
		var text string
		for _, piece := range content.Array() {
			if piece.Get("type").String() == "text" {
				text += piece.Get("text").String()
			}
		}
		response = map[string]interface{}{"result": text}
	case content.IsObject():
		response = content.Value()
	default:
		var parsedContent interface{}
		if err := json.Unmarshal([]byte(content.String()), &parsedContent); err == nil {
			response = parsedContent
		} else {
			response = map[string]interface{}{"result": content.String()}
		}
	}

	funcResp := map[string]interface{}{
		"name":     SanitizeToolName(name),
		"response": response,
	}
	if id != "" {
		funcResp["id"] = id
	}
	return map[string]interface{}{"functionResponse": funcResp}
}

func (c *Converter) applyClaudeTools(out string, rawJSON []byte, model string, f Features) string {
	var decls []interface{}
	for _, tool := range gjson.GetBytes(rawJSON, "tools").Array() {
		name := tool.Get("name").String()
		if name == "" {
			continue
		}
		safe := name
		if c.Names != nil {
			safe = c.Names.Register(model, name)
		}
		decl := map[string]interface{}{
			"name":       safe,
			"parameters": cleanParameters(tool.Get("input_schema")),
		}
		if desc := tool.Get("description").String(); desc != "" {
			decl["description"] = desc
		}
		decls = append(decls, decl)
	}

	var tools []interface{}
	if len(decls) > 0 {
		tools = append(tools, map[string]interface{}{"functionDeclarations": decls})
	}
	if f.Search {
		tools = append(tools, map[string]interface{}{"googleSearch": map[string]interface{}{}})
	}
	if len(tools) == 0 {
		return out
	}
	toolsJSON, _ := json.Marshal(tools)
	out, _ = sjson.SetRaw(out, "tools", string(toolsJSON))

	if tc := gjson.GetBytes(rawJSON, "tool_choice"); tc.Exists() && len(decls) > 0 {
		mode := ""
		switch tc.Get("type").String() {
		case "auto":
			mode = "AUTO"
		case "any":
			mode = "ANY"
		case "tool":
			mode = "ANY"
		case "none":
			mode = "NONE"
		}
		if mode != "" {
			out, _ = sjson.Set(out, "toolConfig.functionCallingConfig.mode", mode)
		}
	}
	return out
}

// ClaudeResponse assembles the non-stream Messages body. Thinking blocks come
// first, then tool_use, then text, mirroring the upstream part order.
func (c *Converter) ClaudeResponse(requestedModel string, p Parsed) []byte {
	var blocks []map[string]interface{}

	if p.Reasoning != "" {
		block := map[string]interface{}{
			"type":     "thinking",
			"thinking": p.Reasoning,
		}
		if c.PassSignatureToClient && p.ReasoningSignature != "" && p.ReasoningSignature != constants.SkipThoughtSignature {
			block["signature"] = p.ReasoningSignature
		}
		blocks = append(blocks, block)
	}
	for _, tc := range p.ToolCalls {
		var input interface{}
		if err := json.Unmarshal([]byte(tc.ArgsJSON), &input); err != nil {
			input = map[string]interface{}{}
		}
		id := tc.ID
		if id == "" {
			id = responseID("toolu")
		}
		block := map[string]interface{}{
			"type":  "tool_use",
			"id":    id,
			"name":  tc.Name,
			"input": input,
		}
		if c.PassSignatureToClient && tc.Signature != "" && tc.Signature != constants.SkipThoughtSignature {
			block["signature"] = tc.Signature
		}
		blocks = append(blocks, block)
	}
	if p.Content != "" || len(blocks) == 0 {
		blocks = append(blocks, map[string]interface{}{
			"type": "text",
			"text": p.Content,
		})
	}

	body := map[string]interface{}{
		"id":            responseID("msg"),
		"type":          "message",
		"role":          "assistant",
		"model":         requestedModel,
		"content":       blocks,
		"stop_reason":   ClaudeStopReason(p.FinishReason, len(p.ToolCalls) > 0),
		"stop_sequence": nil,
	}
	if p.Usage != nil {
		body["usage"] = map[string]interface{}{
			"input_tokens":  p.Usage.Prompt,
			"output_tokens": p.Usage.Completion,
		}
	} else {
		body["usage"] = nil
	}

	out, _ := json.Marshal(body)
	return out
}
