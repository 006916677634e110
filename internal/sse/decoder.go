// Package sse turns a fragmented text/event-stream body into the ordered text
// fragments of a bot reply.
package sse

import (
	"bytes"
	"strings"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
)

// Decoder is a push-style line decoder. Bytes are buffered until a newline
// arrives, so chunks may split lines or multi-byte characters anywhere.
//
// Lines are classified one at a time rather than per event record:
// "event:" sets the current event name, "data:" under a token event yields a
// fragment, a blank line resets the event name, and comments and unknown
// fields are ignored.
type Decoder struct {
	pending []byte
	event   string
	emitted int
}

// Feed consumes one chunk and returns the fragments completed by it.
func (d *Decoder) Feed(chunk []byte) []string {
	d.pending = append(d.pending, chunk...)

	var out []string
	for {
		idx := bytes.IndexByte(d.pending, '\n')
		if idx < 0 {
			break
		}
		line := d.pending[:idx]
		d.pending = d.pending[idx+1:]
		if fragment, ok := d.line(line); ok {
			out = append(out, fragment)
		}
	}
	if len(d.pending) == 0 {
		d.pending = nil
	}
	return out
}

// Flush processes a trailing line that was never newline-terminated.
func (d *Decoder) Flush() []string {
	if len(d.pending) == 0 {
		return nil
	}
	line := d.pending
	d.pending = nil
	if fragment, ok := d.line(line); ok {
		return []string{fragment}
	}
	return nil
}

// Emitted counts fragments returned so far.
func (d *Decoder) Emitted() int {
	return d.emitted
}

func (d *Decoder) line(raw []byte) (string, bool) {
	text := strings.ToValidUTF8(string(raw), "�")
	text = strings.TrimSuffix(text, "\r")

	switch {
	case text == "":
		d.event = ""
	case strings.HasPrefix(text, ":"):
	case strings.HasPrefix(text, "event:"):
		d.event = strings.TrimSpace(strings.TrimPrefix(text, "event:"))
	case strings.HasPrefix(text, "data:"):
		value := strings.TrimPrefix(text, "data:")
		value = strings.TrimPrefix(value, " ")
		ev := chat.StreamEvent{Name: d.event, Data: value}
		if ev.Renderable() {
			d.emitted++
			return value, true
		}
	}
	return "", false
}
