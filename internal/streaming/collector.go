package streaming

import (
	"strings"

	"antigravity2api-go/internal/translator"
)

// Collector accumulates neutral events into the flattened response shape the
// non-stream assemblers take. It backs fake-non-stream mode.
type Collector struct {
	content      strings.Builder
	reasoning    strings.Builder
	reasoningSig string
	calls        []translator.ToolCall
	usage        *translator.Usage
	finishReason string
}

func NewCollector() *Collector { return &Collector{} }

// WriteEvent satisfies Writer so the collector can sit behind the same pump.
func (c *Collector) WriteEvent(ev Event) error {
	switch ev.Type {
	case EventText:
		c.content.WriteString(ev.Text)
	case EventReasoning:
		c.reasoning.WriteString(ev.Text)
		if ev.Signature != "" {
			c.reasoningSig = ev.Signature
		}
	case EventToolCalls:
		c.calls = append(c.calls, ev.Calls...)
	case EventUsage:
		c.usage = ev.Usage
	case EventDone:
		if ev.Usage != nil {
			c.usage = ev.Usage
		}
		c.finishReason = ev.FinishReason
	}
	return nil
}

func (c *Collector) Finish() error { return nil }

// Result returns the accumulated response. Usage stays nil when the upstream
// never emitted usageMetadata; clients must tolerate a null usage.
func (c *Collector) Result() translator.Parsed {
	return translator.Parsed{
		Content:            c.content.String(),
		Reasoning:          c.reasoning.String(),
		ReasoningSignature: c.reasoningSig,
		ToolCalls:          c.calls,
		Usage:              c.usage,
		FinishReason:       c.finishReason,
	}
}
