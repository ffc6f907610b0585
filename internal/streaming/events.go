// Package streaming pumps upstream SSE bodies through a neutral event stream
// and re-frames them for each client dialect.
package streaming

import (
	"time"

	"antigravity2api-go/internal/translator"
)

func nowUnix() int64 { return time.Now().Unix() }

// EventType tags a neutral stream event.
type EventType int

const (
	EventText EventType = iota
	EventReasoning
	EventToolCalls
	EventUsage
	EventDone
)

// Event is the dialect-neutral unit between the SSE parser and the writers.
type Event struct {
	Type         EventType
	Text         string
	Signature    string
	Calls        []translator.ToolCall
	Usage        *translator.Usage
	FinishReason string
}

// Writer re-frames neutral events into one client dialect. Implementations
// are single-stream state machines and not safe for concurrent use; the
// heartbeat shares the underlying FrameWriter, not the Writer.
type Writer interface {
	WriteEvent(ev Event) error
	// Finish emits the dialect's stream terminator. Safe to call once after
	// the final Done event.
	Finish() error
}
