package streaming

import (
	"context"
	"io"

	"antigravity2api-go/internal/constants"
	log "github.com/sirupsen/logrus"
)

// Pump reads the upstream body to completion, feeding the parser and
// dispatching events to the writer. Write errors abort the pump (client
// hung up); upstream read errors after a complete stream are ignored.
func Pump(ctx context.Context, body io.Reader, parser *Parser, w Writer) error {
	buf := make([]byte, constants.SSEScannerInitialBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, ev := range parser.Feed(buf[:n]) {
				if err := w.WriteEvent(ev); err != nil {
					return err
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if parser.Done() {
				log.WithError(readErr).Debug("upstream read error after stream completion")
				break
			}
			return readErr
		}
	}
	for _, ev := range parser.Close() {
		if err := w.WriteEvent(ev); err != nil {
			return err
		}
	}
	return w.Finish()
}

// Replay drives a prepared event sequence through a stream writer; the
// fake-stream path for clients that asked for SSE against a non-stream call.
func Replay(events []Event, w Writer) error {
	for _, ev := range events {
		if err := w.WriteEvent(ev); err != nil {
			return err
		}
	}
	return w.Finish()
}
