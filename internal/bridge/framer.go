// Package bridge implements the interactive command channel to a running
// Godot editor: a newline-delimited JSON transport over a loopback TCP
// socket, a strictly serialized request correlator on top of it, the
// supervisor for the editor process itself, and the session lifecycle that
// ties the three together.
package bridge

import (
	"bytes"
	"strings"
)

// framer accumulates raw socket bytes and splits out complete
// newline-terminated lines. A single Feed may surface zero, one, or many
// lines depending on how the kernel coalesced the stream.
type framer struct {
	buf bytes.Buffer
}

// Feed appends data to the buffer and returns every complete line found,
// trimmed of the terminator and surrounding whitespace. Bytes after the
// last terminator stay buffered for the next Feed.
func (f *framer) Feed(data []byte) []string {
	f.buf.Write(data)

	var lines []string
	for {
		raw := f.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			return lines
		}
		line := strings.TrimSpace(string(raw[:idx]))
		f.buf.Next(idx + 1)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
}

// Reset discards any buffered partial line. Called when a connection is
// replaced so a new socket never inherits half a message.
func (f *framer) Reset() {
	f.buf.Reset()
}
