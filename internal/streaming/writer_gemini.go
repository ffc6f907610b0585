package streaming

import (
	"encoding/json"

	"antigravity2api-go/internal/translator"
)

// GeminiWriter frames neutral events as native generateContent SSE chunks.
type GeminiWriter struct {
	fw *FrameWriter

	passSignature bool
	usage         *translator.Usage
	toolCalls     bool
}

func NewGeminiWriter(fw *FrameWriter, passSignature bool) *GeminiWriter {
	return &GeminiWriter{fw: fw, passSignature: passSignature}
}

func (w *GeminiWriter) WriteEvent(ev Event) error {
	switch ev.Type {
	case EventText:
		return w.writeParts([]map[string]interface{}{{"text": ev.Text}}, "")
	case EventReasoning:
		part := map[string]interface{}{"text": ev.Text, "thought": true}
		if w.passSignature && ev.Signature != "" {
			part["thoughtSignature"] = ev.Signature
		}
		return w.writeParts([]map[string]interface{}{part}, "")
	case EventToolCalls:
		w.toolCalls = true
		var parts []map[string]interface{}
		for _, tc := range ev.Calls {
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
		return w.writeParts(parts, "")
	case EventUsage:
		w.usage = ev.Usage
		return nil
	case EventDone:
		if ev.Usage != nil {
			w.usage = ev.Usage
		}
		reason := ev.FinishReason
		if reason == "" {
			reason = "STOP"
		}
		return w.writeParts(nil, reason)
	}
	return nil
}

func (w *GeminiWriter) writeParts(parts []map[string]interface{}, finishReason string) error {
	candidate := map[string]interface{}{"index": 0}
	if len(parts) > 0 {
		candidate["content"] = map[string]interface{}{
			"role":  "model",
			"parts": parts,
		}
	}
	if finishReason != "" {
		candidate["finishReason"] = finishReason
	}
	chunk := map[string]interface{}{
		"candidates": []map[string]interface{}{candidate},
	}
	if finishReason != "" && w.usage != nil {
		chunk["usageMetadata"] = map[string]interface{}{
			"promptTokenCount":     w.usage.Prompt,
			"candidatesTokenCount": w.usage.Completion,
			"totalTokenCount":      w.usage.Total,
		}
	}
	payload, _ := json.Marshal(chunk)
	return w.fw.WriteData(payload)
}

// Finish is a no-op: the Gemini dialect closes after the final typed chunk.
func (w *GeminiWriter) Finish() error { return nil }
