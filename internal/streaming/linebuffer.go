package streaming

import "bytes"

// LineBuffer splits an arbitrary chunk sequence on '\n', carrying the
// unterminated tail across appends. Lines come out in order, without the
// newline; empty lines are preserved.
type LineBuffer struct {
	tail []byte
}

// Append consumes one chunk and returns the complete lines it closed.
func (b *LineBuffer) Append(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	data := chunk
	if len(b.tail) > 0 {
		data = append(b.tail, chunk...)
		b.tail = nil
	}

	var lines []string
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := data[:idx]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		lines = append(lines, string(line))
		data = data[idx+1:]
	}
	if len(data) > 0 {
		b.tail = append([]byte(nil), data...)
	}
	return lines
}

// Flush returns the unterminated tail, if any, and resets the buffer.
func (b *LineBuffer) Flush() (string, bool) {
	if len(b.tail) == 0 {
		return "", false
	}
	line := string(b.tail)
	b.tail = nil
	return line, true
}
