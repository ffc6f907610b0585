package streaming

import (
	"antigravity2api-go/internal/translator"
)

// EventsFromParsed synthesizes the event sequence a real stream would have
// produced for a collected response: reasoning, tool calls, text, usage,
// done. Feeding these through a dialect writer is the fake-stream mode.
func EventsFromParsed(p translator.Parsed) []Event {
	var events []Event
	if p.Reasoning != "" {
		events = append(events, Event{
			Type:      EventReasoning,
			Text:      p.Reasoning,
			Signature: p.ReasoningSignature,
		})
	}
	if len(p.ToolCalls) > 0 {
		events = append(events, Event{Type: EventToolCalls, Calls: p.ToolCalls})
	}
	if p.Content != "" {
		events = append(events, Event{Type: EventText, Text: p.Content})
	}
	if p.Usage != nil {
		events = append(events, Event{Type: EventUsage, Usage: p.Usage})
	}
	reason := p.FinishReason
	if reason == "" {
		reason = "STOP"
	}
	events = append(events, Event{Type: EventDone, FinishReason: reason, Usage: p.Usage})
	return events
}
