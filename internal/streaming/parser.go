package streaming

import (
	"encoding/json"
	"fmt"
	"strings"

	"antigravity2api-go/internal/sigcache"
	"antigravity2api-go/internal/translator"
	"github.com/tidwall/gjson"
)

// Parser turns upstream SSE lines into neutral events. Tool calls are
// buffered until finishReason arrives so they flush as one ToolCalls event.
type Parser struct {
	conv     *translator.Converter
	model    string
	hasTools bool

	buf          LineBuffer
	reasoning    strings.Builder
	reasoningSig string
	calls        []translator.ToolCall
	usage        *translator.Usage
	done         bool
}

// NewParser builds a parser for one stream. model is the real upstream model
// (prefixes stripped); hasTools selects the signature bucket on cache writes.
func NewParser(conv *translator.Converter, model string, hasTools bool) *Parser {
	return &Parser{conv: conv, model: model, hasTools: hasTools}
}

// Feed consumes one body chunk and returns the events it completed.
func (p *Parser) Feed(chunk []byte) []Event {
	var events []Event
	for _, line := range p.buf.Append(chunk) {
		events = append(events, p.parseLine(line)...)
	}
	return events
}

// Close drains the unterminated tail. Streams that ended without a
// finishReason still flush buffered tool calls and a Done event.
func (p *Parser) Close() []Event {
	var events []Event
	if line, ok := p.buf.Flush(); ok {
		events = append(events, p.parseLine(line)...)
	}
	if !p.done {
		events = append(events, p.finish("STOP")...)
	}
	return events
}

// Done reports whether the stream delivered its finishReason.
func (p *Parser) Done() bool { return p.done }

func (p *Parser) parseLine(line string) []Event {
	if !strings.HasPrefix(line, "data: ") {
		return nil
	}
	payload := strings.TrimPrefix(line, "data: ")
	if payload == "[DONE]" {
		return nil
	}

	root := gjson.Parse(payload)
	if inner := root.Get("response"); inner.Exists() {
		root = inner
	}

	var events []Event
	candidate := root.Get("candidates.0")

	for _, part := range candidate.Get("content.parts").Array() {
		sig := part.Get("thoughtSignature").String()

		if part.Get("thought").Bool() {
			text := part.Get("text").String()
			p.reasoning.WriteString(text)
			if sig != "" {
				p.reasoningSig = sig
			}
			events = append(events, Event{Type: EventReasoning, Text: text, Signature: sig})
			continue
		}
		if fn := part.Get("functionCall"); fn.Exists() {
			safeName := fn.Get("name").String()
			name := safeName
			if p.conv != nil && p.conv.Names != nil {
				name = p.conv.Names.Resolve(p.model, safeName)
			}
			args := "{}"
			if a := fn.Get("args"); a.Exists() {
				if raw, err := json.Marshal(a.Value()); err == nil {
					args = string(raw)
				}
			}
			if sig == "" {
				sig = p.reasoningSig
			}
			p.calls = append(p.calls, translator.ToolCall{
				ID:        fmt.Sprintf("call_%s_%d", safeName, len(p.calls)),
				Name:      name,
				ArgsJSON:  args,
				Signature: sig,
			})
			continue
		}
		if img := part.Get("inlineData"); img.Exists() {
			text := imageText(p.conv, img.Get("mimeType").String(), img.Get("data").String())
			events = append(events, Event{Type: EventText, Text: text})
			continue
		}
		if text := part.Get("text"); text.Exists() {
			events = append(events, Event{Type: EventText, Text: text.String()})
		}
	}

	if usage := root.Get("usageMetadata"); usage.Exists() {
		p.usage = &translator.Usage{
			Prompt:     usage.Get("promptTokenCount").Int(),
			Completion: usage.Get("candidatesTokenCount").Int(),
			Total:      usage.Get("totalTokenCount").Int(),
		}
		if p.usage.Total == 0 {
			p.usage.Total = p.usage.Prompt + p.usage.Completion
		}
	}

	if fr := candidate.Get("finishReason"); fr.Exists() && fr.String() != "" {
		events = append(events, p.finish(fr.String())...)
	}
	return events
}

// finish flushes buffered tool calls, usage, and the Done event, updating the
// signature cache first.
func (p *Parser) finish(reason string) []Event {
	if p.done {
		return nil
	}
	p.done = true
	p.remember()

	var events []Event
	if len(p.calls) > 0 {
		events = append(events, Event{Type: EventToolCalls, Calls: p.calls})
	}
	if p.usage != nil {
		events = append(events, Event{Type: EventUsage, Usage: p.usage})
	}
	events = append(events, Event{Type: EventDone, FinishReason: reason, Usage: p.usage})
	return events
}

func imageText(conv *translator.Converter, mimeType, data string) string {
	if conv != nil {
		return conv.ImageText(mimeType, data)
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "![image](data:" + mimeType + ";base64," + data + ")"
}

func (p *Parser) remember() {
	if p.conv == nil || p.conv.Cache == nil {
		return
	}
	opts := sigcache.SetOptions{
		HasTools:     p.hasTools,
		IsImageModel: translator.IsImageModel(p.model),
	}
	if p.reasoningSig != "" {
		p.conv.Cache.Set("", p.model, p.reasoningSig, p.reasoning.String(), sigcache.SetOptions{
			IsImageModel: opts.IsImageModel,
		})
	}
	for _, tc := range p.calls {
		if tc.Signature != "" {
			p.conv.Cache.Set("", p.model, tc.Signature, "", sigcache.SetOptions{
				HasTools:     true,
				IsImageModel: opts.IsImageModel,
			})
			break
		}
	}
}
