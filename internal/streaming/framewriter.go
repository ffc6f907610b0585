package streaming

import (
	"io"
	"net/http"
	"sync"
)

// FrameWriter serializes SSE frames onto one response body. The mutex lets
// the heartbeat interleave comment frames with data frames without tearing.
type FrameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFrameWriter wraps a response writer. Flushing happens per frame when the
// writer supports it.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteData emits one "data: <payload>\n\n" frame.
func (f *FrameWriter) WriteData(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := f.w.Write(payload); err != nil {
		return err
	}
	if _, err := f.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	f.flushLocked()
	return nil
}

// WriteTyped emits an "event: <name>\ndata: <payload>\n\n" frame (Claude).
func (f *FrameWriter) WriteTyped(event string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.w.Write([]byte("event: " + event + "\ndata: ")); err != nil {
		return err
	}
	if _, err := f.w.Write(payload); err != nil {
		return err
	}
	if _, err := f.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	f.flushLocked()
	return nil
}

// WriteComment emits a raw comment frame; the heartbeat's keep-alive.
func (f *FrameWriter) WriteComment(comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.w.Write([]byte(": " + comment + "\n\n")); err != nil {
		return err
	}
	f.flushLocked()
	return nil
}

func (f *FrameWriter) flushLocked() {
	if fl, ok := f.w.(http.Flusher); ok {
		fl.Flush()
	}
}
