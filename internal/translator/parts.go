package translator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// ToolCall is a dialect-neutral function call extracted from upstream parts.
// Name is the caller's original name, already resolved through the table.
type ToolCall struct {
	ID        string
	Name      string
	ArgsJSON  string
	Signature string
}

// Usage mirrors usageMetadata in dialect-neutral form.
type Usage struct {
	Prompt     int64
	Completion int64
	Total      int64
}

// Parsed is the flattened view of one upstream response, shared by all three
// non-stream assemblers.
type Parsed struct {
	Content            string
	Reasoning          string
	ReasoningSignature string
	ToolCalls          []ToolCall
	Usage              *Usage
	FinishReason       string
}

// ParseResponse flattens candidates[0].content.parts. It accepts both the
// bare shape and the {response:{...}} envelope the v1internal endpoints use.
// Captured signatures go to the cache under the gating policy.
func (c *Converter) ParseResponse(model string, body []byte) Parsed {
	root := gjson.ParseBytes(body)
	if inner := root.Get("response"); inner.Exists() {
		root = inner
	}

	var p Parsed
	candidate := root.Get("candidates.0")
	hasTools := false

	for _, part := range candidate.Get("content.parts").Array() {
		sig := part.Get("thoughtSignature").String()

		if part.Get("thought").Bool() {
			p.Reasoning += part.Get("text").String()
			if sig != "" {
				p.ReasoningSignature = sig
			}
			continue
		}
		if fn := part.Get("functionCall"); fn.Exists() {
			hasTools = true
			safeName := fn.Get("name").String()
			name := safeName
			if c.Names != nil {
				name = c.Names.Resolve(model, safeName)
			}
			args := "{}"
			if a := fn.Get("args"); a.Exists() {
				raw, err := json.Marshal(a.Value())
				if err == nil {
					args = string(raw)
				}
			}
			p.ToolCalls = append(p.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("call_%s_%d", safeName, len(p.ToolCalls)),
				Name:      name,
				ArgsJSON:  args,
				Signature: sig,
			})
			continue
		}
		if img := part.Get("inlineData"); img.Exists() {
			p.Content += c.ImageText(img.Get("mimeType").String(), img.Get("data").String())
			continue
		}
		if text := part.Get("text"); text.Exists() {
			p.Content += text.String()
		}
	}

	if fr := candidate.Get("finishReason"); fr.Exists() {
		p.FinishReason = fr.String()
	}
	if usage := root.Get("usageMetadata"); usage.Exists() {
		p.Usage = &Usage{
			Prompt:     usage.Get("promptTokenCount").Int(),
			Completion: usage.Get("candidatesTokenCount").Int(),
			Total:      usage.Get("totalTokenCount").Int(),
		}
		if p.Usage.Total == 0 {
			p.Usage.Total = p.Usage.Prompt + p.Usage.Completion
		}
	}

	c.rememberSignatures(model, &p, hasTools)
	return p
}

func (c *Converter) rememberSignatures(model string, p *Parsed, hasTools bool) {
	if c.Cache == nil {
		return
	}
	if p.ReasoningSignature != "" {
		c.Cache.Set("", model, p.ReasoningSignature, p.Reasoning, cacheSetOpts(false, model))
	}
	for _, tc := range p.ToolCalls {
		if tc.Signature != "" {
			c.Cache.Set("", model, tc.Signature, "", cacheSetOpts(hasTools, model))
			break
		}
	}
}

// OpenAIFinishReason maps the upstream finish reason onto the OpenAI set.
func OpenAIFinishReason(upstream string, hasToolCalls bool) string {
	if hasToolCalls {
		return "tool_calls"
	}
	switch upstream {
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT":
		return "content_filter"
	default:
		return "stop"
	}
}

// ClaudeStopReason maps the upstream finish reason onto Anthropic's set.
func ClaudeStopReason(upstream string, hasToolCalls bool) string {
	if hasToolCalls {
		return "tool_use"
	}
	switch upstream {
	case "MAX_TOKENS":
		return "max_tokens"
	default:
		return "end_turn"
	}
}

// responseID produces a fresh per-response identifier in the dialect's style.
func responseID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func nowUnix() int64 { return time.Now().Unix() }
