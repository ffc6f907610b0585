package translator

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// OpenAIToUpstream converts an OpenAI chat completions body into the inner
// upstream request.
func (c *Converter) OpenAIToUpstream(rawJSON []byte) (*Upstream, error) {
	requested := gjson.GetBytes(rawJSON, "model").String()
	model, features := ParseModelFeatures(requested)

	out := `{"contents":[]}`

	contents, systemParts := c.openAIMessages(rawJSON, model)
	hasTools := gjson.GetBytes(rawJSON, "tools").IsArray() && len(gjson.GetBytes(rawJSON, "tools").Array()) > 0

	c.applyHistorySignatures(contents, model, hasTools)

	contentsJSON, _ := json.Marshal(contents)
	out, _ = sjson.SetRaw(out, "contents", string(contentsJSON))

	if len(systemParts) > 0 {
		sysJSON, _ := json.Marshal(map[string]interface{}{"parts": systemParts})
		out, _ = sjson.SetRaw(out, "systemInstruction", string(sysJSON))
	}

	genConfig := buildGenerationConfig(rawJSON, DialectOpenAI, model, features)
	genJSON, _ := json.Marshal(genConfig)
	out, _ = sjson.SetRaw(out, "generationConfig", string(genJSON))

	out = c.applyOpenAITools(out, rawJSON, model, features)

	return &Upstream{
		Model:    model,
		Request:  []byte(out),
		HasTools: hasTools,
		Features: features,
	}, nil
}

// openAIMessages walks messages[] building upstream contents. Tool results
// attach to the preceding user turn when one exists.
func (c *Converter) openAIMessages(rawJSON []byte, model string) ([]interface{}, []interface{}) {
	var contents []interface{}
	var systemParts []interface{}

	toolSig := c.ResolveSignature(model, true)

	for _, msg := range gjson.GetBytes(rawJSON, "messages").Array() {
		role := msg.Get("role").String()
		content := msg.Get("content")

		switch role {
		case "system", "developer":
			if content.IsArray() {
				for _, part := range content.Array() {
					systemParts = append(systemParts, openAIContentPart(part))
				}
			} else if content.String() != "" {
				systemParts = append(systemParts, map[string]interface{}{"text": content.String()})
			}

		case "user":
			parts := openAIUserParts(content)
			if len(parts) > 0 {
				contents = append(contents, map[string]interface{}{"role": "user", "parts": parts})
			}

		case "assistant":
			var parts []interface{}
			if content.Exists() && content.String() != "" {
				parts = append(parts, map[string]interface{}{"text": content.String()})
			}
			if rc := msg.Get("reasoning_content"); rc.Exists() && rc.String() != "" {
				parts = append([]interface{}{map[string]interface{}{
					"thought": true,
					"text":    rc.String(),
				}}, parts...)
			}
			for _, tc := range msg.Get("tool_calls").Array() {
				if tc.Get("type").String() != "function" {
					continue
				}
				name := tc.Get("function.name").String()
				safe := name
				if c.Names != nil {
					safe = c.Names.Register(model, name)
				}
				var argsObj interface{}
				if err := json.Unmarshal([]byte(tc.Get("function.arguments").String()), &argsObj); err != nil {
					argsObj = map[string]interface{}{"query": tc.Get("function.arguments").String()}
				}
				part := map[string]interface{}{
					"functionCall": map[string]interface{}{
						"name": safe,
						"args": argsObj,
					},
				}
				attachSignature(part, toolSig)
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				contents = append(contents, map[string]interface{}{"role": "model", "parts": parts})
			}

		case "tool":
			name := msg.Get("name").String()
			if name != "" {
				name = SanitizeToolName(name)
			}
			var responseContent interface{}
			raw := content.String()
			if err := json.Unmarshal([]byte(raw), &responseContent); err != nil {
				responseContent = map[string]interface{}{"result": raw}
			}
			funcResp := map[string]interface{}{
				"functionResponse": map[string]interface{}{
					"name":     name,
					"response": responseContent,
				},
			}
			if id := msg.Get("tool_call_id").String(); id != "" {
				funcResp["functionResponse"].(map[string]interface{})["id"] = id
			}
			contents = appendToLastUser(contents, funcResp)
		}
	}
	return contents, systemParts
}

// appendToLastUser attaches a part to the trailing user message, creating one
// when the conversation does not end with a user turn.
func appendToLastUser(contents []interface{}, part interface{}) []interface{} {
	if n := len(contents); n > 0 {
		if last, ok := contents[n-1].(map[string]interface{}); ok && last["role"] == "user" {
			if parts, ok := last["parts"].([]interface{}); ok {
				last["parts"] = append(parts, part)
				return contents
			}
		}
	}
	return append(contents, map[string]interface{}{
		"role":  "user",
		"parts": []interface{}{part},
	})
}

func openAIUserParts(content gjson.Result) []interface{} {
	if content.IsArray() {
		var parts []interface{}
		for _, part := range content.Array() {
			parts = append(parts, openAIContentPart(part))
		}
		return parts
	}
	if content.String() == "" {
		return nil
	}
	return []interface{}{map[string]interface{}{"text": content.String()}}
}

func openAIContentPart(part gjson.Result) interface{} {
	switch part.Get("type").String() {
	case "text":
		return map[string]interface{}{"text": part.Get("text").String()}
	case "image_url":
		imageURL := part.Get("image_url.url").String()
		if strings.HasPrefix(imageURL, "data:") {
			if pieces := strings.SplitN(imageURL, ",", 2); len(pieces) == 2 {
				return map[string]interface{}{
					"inlineData": map[string]interface{}{
						"mimeType": dataURLMIME(pieces[0]),
						"data":     pieces[1],
					},
				}
			}
		}
		return map[string]interface{}{
			"fileData": map[string]interface{}{"fileUri": imageURL},
		}
	}
	var generic interface{}
	if err := json.Unmarshal([]byte(part.Raw), &generic); err == nil {
		return generic
	}
	return map[string]interface{}{"text": part.Raw}
}

func dataURLMIME(prefix string) string {
	for _, mime := range []string{"image/png", "image/webp", "image/gif", "image/heic", "image/heif"} {
		if strings.Contains(prefix, mime) {
			return mime
		}
	}
	return "image/jpeg"
}

// applyOpenAITools translates tools[] into functionDeclarations, sanitizing
// names and schemas. The -search suffix appends a googleSearch tool.
func (c *Converter) applyOpenAITools(out string, rawJSON []byte, model string, f Features) string {
	var decls []interface{}
	for _, tool := range gjson.GetBytes(rawJSON, "tools").Array() {
		if tool.Get("type").String() != "function" {
			continue
		}
		fn := tool.Get("function")
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
		switch tc.String() {
		case "none":
			mode = "NONE"
		case "required":
			mode = "ANY"
		case "auto":
			mode = "AUTO"
		}
		if mode != "" {
			out, _ = sjson.Set(out, "toolConfig.functionCallingConfig.mode", mode)
		}
	}
	return out
}

// OpenAIResponse assembles the non-stream chat completion body.
func (c *Converter) OpenAIResponse(requestedModel string, p Parsed) []byte {
	message := map[string]interface{}{
		"role":    "assistant",
		"content": p.Content,
	}
	if p.Reasoning != "" {
		message["reasoning_content"] = p.Reasoning
	}
	if len(p.ToolCalls) > 0 {
		var calls []map[string]interface{}
		for i, tc := range p.ToolCalls {
			calls = append(calls, map[string]interface{}{
				"id":    tc.ID,
				"type":  "function",
				"index": i,
				"function": map[string]interface{}{
					"name":      tc.Name,
					"arguments": tc.ArgsJSON,
				},
			})
		}
		message["tool_calls"] = calls
	}

	body := map[string]interface{}{
		"id":      responseID("chatcmpl"),
		"object":  "chat.completion",
		"created": nowUnix(),
		"model":   requestedModel,
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       message,
			"finish_reason": OpenAIFinishReason(p.FinishReason, len(p.ToolCalls) > 0),
		}},
	}
	if p.Usage != nil {
		body["usage"] = map[string]interface{}{
			"prompt_tokens":     p.Usage.Prompt,
			"completion_tokens": p.Usage.Completion,
			"total_tokens":      p.Usage.Total,
		}
	} else {
		body["usage"] = nil
	}

	out, _ := json.Marshal(body)
	return out
}
