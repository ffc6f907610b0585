package streaming

import (
	"bytes"
	"testing"

	"antigravity2api-go/internal/translator"
	"github.com/tidwall/gjson"
)

func TestGeminiWriter_ChunksAndFinalUsage(t *testing.T) {
	var buf bytes.Buffer
	w := NewGeminiWriter(NewFrameWriter(&buf), true)

	w.WriteEvent(Event{Type: EventReasoning, Text: "mull", Signature: "RS"})
	w.WriteEvent(Event{Type: EventText, Text: "hi"})
	w.WriteEvent(Event{Type: EventDone, FinishReason: "STOP", Usage: &translator.Usage{Prompt: 2, Completion: 3, Total: 5}})
	w.Finish()

	frames := dataFrames(t, buf.String())
	if len(frames) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(frames))
	}

	thought := gjson.Parse(frames[0]).Get("candidates.0.content.parts.0")
	if !thought.Get("thought").Bool() || thought.Get("thoughtSignature").String() != "RS" {
		t.Errorf("thought part: %s", frames[0])
	}
	if gjson.Parse(frames[1]).Get("candidates.0.content.parts.0.text").String() != "hi" {
		t.Errorf("text part: %s", frames[1])
	}
	final := gjson.Parse(frames[2])
	if final.Get("candidates.0.finishReason").String() != "STOP" {
		t.Errorf("finishReason: %s", frames[2])
	}
	if final.Get("usageMetadata.totalTokenCount").Int() != 5 {
		t.Errorf("usageMetadata: %s", frames[2])
	}
}

func TestGeminiWriter_SignatureSuppressed(t *testing.T) {
	var buf bytes.Buffer
	w := NewGeminiWriter(NewFrameWriter(&buf), false)
	w.WriteEvent(Event{Type: EventReasoning, Text: "mull", Signature: "RS"})

	frames := dataFrames(t, buf.String())
	if gjson.Parse(frames[0]).Get("candidates.0.content.parts.0.thoughtSignature").Exists() {
		t.Errorf("signature should be suppressed: %s", frames[0])
	}
}
