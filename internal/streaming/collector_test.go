package streaming

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

// Streamed chunks collected through the pump must flatten to the same result
// as parsing the equivalent non-stream body.
func TestCollector_MatchesNonStreamParse(t *testing.T) {
	conv := newTestConverter()

	transcript := strings.Join([]string{
		`data: {"response":{"candidates":[{"content":{"parts":[{"thought":true,"text":"think ","thoughtSignature":"RS"}]}}]}}`,
		`data: {"response":{"candidates":[{"content":{"parts":[{"thought":true,"text":"hard"}]}}]}}`,
		`data: {"response":{"candidates":[{"content":{"parts":[{"text":"hel"}]}}]}}`,
		`data: {"response":{"candidates":[{"content":{"parts":[{"text":"lo"}]}}]}}`,
		`data: {"response":{"candidates":[{"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":4,"totalTokenCount":7}}}`,
		`data: [DONE]`,
		``,
	}, "\n")

	nonStream := `{"response":{"candidates":[{"content":{"parts":[` +
		`{"thought":true,"text":"think hard","thoughtSignature":"RS"},` +
		`{"text":"hello"}]},"finishReason":"STOP"}],` +
		`"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":4,"totalTokenCount":7}}}`

	parser := NewParser(conv, "gemini-2.5-pro", false)
	collector := NewCollector()
	if err := Pump(context.Background(), bytes.NewReader([]byte(transcript)), parser, collector); err != nil {
		t.Fatal(err)
	}
	streamed := collector.Result()
	direct := conv.ParseResponse("gemini-2.5-pro", []byte(nonStream))

	if streamed.Content != direct.Content {
		t.Errorf("content: stream %q vs direct %q", streamed.Content, direct.Content)
	}
	if streamed.Reasoning != direct.Reasoning {
		t.Errorf("reasoning: stream %q vs direct %q", streamed.Reasoning, direct.Reasoning)
	}
	if streamed.ReasoningSignature != direct.ReasoningSignature {
		t.Errorf("signature: stream %q vs direct %q", streamed.ReasoningSignature, direct.ReasoningSignature)
	}
	if streamed.Usage == nil || direct.Usage == nil || *streamed.Usage != *direct.Usage {
		t.Errorf("usage: stream %+v vs direct %+v", streamed.Usage, direct.Usage)
	}
}

func TestCollector_UsageStaysNilWhenAbsent(t *testing.T) {
	c := NewCollector()
	c.WriteEvent(Event{Type: EventText, Text: "hi"})
	c.WriteEvent(Event{Type: EventDone, FinishReason: "STOP"})
	if got := c.Result(); got.Usage != nil {
		t.Errorf("usage should stay nil, got %+v", got.Usage)
	}
}

func TestReplay_EventsFromParsed(t *testing.T) {
	conv := newTestConverter()
	parsed := conv.ParseResponse("gemini-2.5-pro", []byte(`{"candidates":[{"content":{"parts":[{"text":"hi"}]},"finishReason":"STOP"}]}`))

	collector := NewCollector()
	if err := Replay(EventsFromParsed(parsed), collector); err != nil {
		t.Fatal(err)
	}
	round := collector.Result()
	if round.Content != "hi" || round.FinishReason != "STOP" {
		t.Errorf("replay lost data: %+v", round)
	}
}
