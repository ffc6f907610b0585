package streaming

import (
	"context"
	"time"
)

// Heartbeat writes a comment frame every interval until the context ends.
// It shares the FrameWriter mutex with the data path so frames never tear.
// Call the returned stop function on stream end.
func Heartbeat(ctx context.Context, fw *FrameWriter, interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fw.WriteComment("heartbeat"); err != nil {
					return
				}
			}
		}
	}()
	return cancel
}
