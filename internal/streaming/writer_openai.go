package streaming

import (
	"encoding/json"

	"antigravity2api-go/internal/translator"
)

// OpenAIWriter frames neutral events as chat.completion.chunk SSE.
type OpenAIWriter struct {
	fw    *FrameWriter
	model string
	id    string

	chunkIndex int
	usage      *translator.Usage
	finished   bool
	toolCalls  bool
}

func NewOpenAIWriter(fw *FrameWriter, requestedModel, id string) *OpenAIWriter {
	return &OpenAIWriter{fw: fw, model: requestedModel, id: id}
}

func (w *OpenAIWriter) WriteEvent(ev Event) error {
	switch ev.Type {
	case EventText:
		return w.writeDelta(map[string]interface{}{"content": ev.Text}, nil)
	case EventReasoning:
		return w.writeDelta(map[string]interface{}{"reasoning_content": ev.Text}, nil)
	case EventToolCalls:
		w.toolCalls = true
		var calls []map[string]interface{}
		for i, tc := range ev.Calls {
			calls = append(calls, map[string]interface{}{
				"index": i,
				"id":    tc.ID,
				"type":  "function",
				"function": map[string]interface{}{
					"name":      tc.Name,
					"arguments": tc.ArgsJSON,
				},
			})
		}
		return w.writeDelta(map[string]interface{}{"tool_calls": calls}, nil)
	case EventUsage:
		w.usage = ev.Usage
		return nil
	case EventDone:
		if ev.Usage != nil {
			w.usage = ev.Usage
		}
		w.finished = true
		reason := translator.OpenAIFinishReason(ev.FinishReason, w.toolCalls)
		return w.writeDelta(map[string]interface{}{}, &reason)
	}
	return nil
}

func (w *OpenAIWriter) writeDelta(delta map[string]interface{}, finishReason *string) error {
	if w.chunkIndex == 0 {
		delta["role"] = "assistant"
	}
	choice := map[string]interface{}{
		"index": 0,
		"delta": delta,
	}
	if finishReason != nil {
		choice["finish_reason"] = *finishReason
	} else {
		choice["finish_reason"] = nil
	}
	chunk := map[string]interface{}{
		"id":      w.id,
		"object":  "chat.completion.chunk",
		"created": nowUnix(),
		"model":   w.model,
		"choices": []map[string]interface{}{choice},
	}
	if finishReason != nil {
		if w.usage != nil {
			chunk["usage"] = map[string]interface{}{
				"prompt_tokens":     w.usage.Prompt,
				"completion_tokens": w.usage.Completion,
				"total_tokens":      w.usage.Total,
			}
		} else {
			chunk["usage"] = nil
		}
	}
	payload, _ := json.Marshal(chunk)
	w.chunkIndex++
	return w.fw.WriteData(payload)
}

// Finish emits the [DONE] terminator.
func (w *OpenAIWriter) Finish() error {
	return w.fw.WriteData([]byte("[DONE]"))
}
