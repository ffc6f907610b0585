package streaming

import (
	"encoding/json"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/translator"
)

type claudeBlock int

const (
	blockNone claudeBlock = iota
	blockThinking
	blockText
)

// ClaudeWriter frames neutral events as Anthropic Messages stream events.
// At most one of thinking/text is open at a time; tool_use blocks are
// emitted as complete start/delta/stop triplets.
type ClaudeWriter struct {
	fw    *FrameWriter
	model string
	id    string

	passSignature bool
	started       bool
	open          claudeBlock
	openSig       string
	blockIndex    int
	usage         *translator.Usage
	toolCalls     bool
}

func NewClaudeWriter(fw *FrameWriter, requestedModel, id string, passSignature bool) *ClaudeWriter {
	return &ClaudeWriter{fw: fw, model: requestedModel, id: id, passSignature: passSignature}
}

func (w *ClaudeWriter) WriteEvent(ev Event) error {
	if err := w.ensureStarted(); err != nil {
		return err
	}
	switch ev.Type {
	case EventReasoning:
		if w.open == blockText {
			if err := w.closeBlock(); err != nil {
				return err
			}
		}
		if w.open == blockNone {
			if err := w.startBlock("thinking", map[string]interface{}{"type": "thinking", "thinking": ""}); err != nil {
				return err
			}
			w.open = blockThinking
		}
		if ev.Signature != "" {
			w.openSig = ev.Signature
		}
		return w.writeDelta(map[string]interface{}{"type": "thinking_delta", "thinking": ev.Text})

	case EventText:
		if w.open == blockThinking {
			if err := w.closeBlock(); err != nil {
				return err
			}
		}
		if w.open == blockNone {
			if err := w.startBlock("text", map[string]interface{}{"type": "text", "text": ""}); err != nil {
				return err
			}
			w.open = blockText
		}
		return w.writeDelta(map[string]interface{}{"type": "text_delta", "text": ev.Text})

	case EventToolCalls:
		w.toolCalls = true
		if err := w.closeBlock(); err != nil {
			return err
		}
		for _, tc := range ev.Calls {
			start := map[string]interface{}{
				"type":  "tool_use",
				"id":    tc.ID,
				"name":  tc.Name,
				"input": map[string]interface{}{},
			}
			if err := w.startBlock("tool_use", start); err != nil {
				return err
			}
			if err := w.writeDelta(map[string]interface{}{
				"type":         "input_json_delta",
				"partial_json": tc.ArgsJSON,
			}); err != nil {
				return err
			}
			if err := w.stopBlock(); err != nil {
				return err
			}
		}
		return nil

	case EventUsage:
		w.usage = ev.Usage
		return nil

	case EventDone:
		if ev.Usage != nil {
			w.usage = ev.Usage
		}
		if err := w.closeBlock(); err != nil {
			return err
		}
		delta := map[string]interface{}{
			"type": "message_delta",
			"delta": map[string]interface{}{
				"stop_reason":   translator.ClaudeStopReason(ev.FinishReason, w.toolCalls),
				"stop_sequence": nil,
			},
		}
		if w.usage != nil {
			delta["usage"] = map[string]interface{}{"output_tokens": w.usage.Completion}
		}
		payload, _ := json.Marshal(delta)
		if err := w.fw.WriteTyped("message_delta", payload); err != nil {
			return err
		}
		stop, _ := json.Marshal(map[string]interface{}{"type": "message_stop"})
		return w.fw.WriteTyped("message_stop", stop)
	}
	return nil
}

func (w *ClaudeWriter) ensureStarted() error {
	if w.started {
		return nil
	}
	w.started = true
	start := map[string]interface{}{
		"type": "message_start",
		"message": map[string]interface{}{
			"id":            w.id,
			"type":          "message",
			"role":          "assistant",
			"model":         w.model,
			"content":       []interface{}{},
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage":         map[string]interface{}{"input_tokens": 0, "output_tokens": 0},
		},
	}
	payload, _ := json.Marshal(start)
	return w.fw.WriteTyped("message_start", payload)
}

func (w *ClaudeWriter) startBlock(kind string, block map[string]interface{}) error {
	_ = kind
	start := map[string]interface{}{
		"type":          "content_block_start",
		"index":         w.blockIndex,
		"content_block": block,
	}
	payload, _ := json.Marshal(start)
	return w.fw.WriteTyped("content_block_start", payload)
}

func (w *ClaudeWriter) writeDelta(delta map[string]interface{}) error {
	chunk := map[string]interface{}{
		"type":  "content_block_delta",
		"index": w.blockIndex,
		"delta": delta,
	}
	payload, _ := json.Marshal(chunk)
	return w.fw.WriteTyped("content_block_delta", payload)
}

func (w *ClaudeWriter) stopBlock() error {
	stop := map[string]interface{}{
		"type":  "content_block_stop",
		"index": w.blockIndex,
	}
	payload, _ := json.Marshal(stop)
	w.blockIndex++
	return w.fw.WriteTyped("content_block_stop", payload)
}

// closeBlock stops whichever block is open. A thinking block first emits its
// signature delta when one was captured and the proxy is allowed to pass it.
func (w *ClaudeWriter) closeBlock() error {
	if w.open == blockNone {
		return nil
	}
	if w.open == blockThinking && w.passSignature &&
		w.openSig != "" && w.openSig != constants.SkipThoughtSignature {
		if err := w.writeDelta(map[string]interface{}{
			"type":      "signature_delta",
			"signature": w.openSig,
		}); err != nil {
			return err
		}
	}
	w.open = blockNone
	w.openSig = ""
	return w.stopBlock()
}

// Finish is a no-op: the Claude dialect closes after message_stop.
func (w *ClaudeWriter) Finish() error { return nil }
