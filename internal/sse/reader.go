package sse

import (
	"io"

	"github.com/pkg/errors"
)

const readBufferSize = 4 * 1024

// FallbackText replaces a reply whose stream produced no fragments.
const FallbackText = "Sorry, I had trouble processing that."

// ReaderOption customises a Reader.
type ReaderOption func(*Reader)

// WithFallback makes the Reader yield text once when the stream ends without
// any fragment.
func WithFallback(text string) ReaderOption {
	return func(r *Reader) { r.fallback = text }
}

// WithBufferSize sets the size of each read from the source.
func WithBufferSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.buf = make([]byte, n)
		}
	}
}

// Reader pulls fragments from an event stream. It is single-use: once Recv
// returns io.EOF or an error, every later call returns the same.
type Reader struct {
	src      io.Reader
	dec      Decoder
	buf      []byte
	queue    []string
	fallback string
	fellBack bool
	err      error
}

func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		src: src,
		buf: make([]byte, readBufferSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recv returns the next fragment in arrival order, io.EOF once the stream is
// exhausted, or the transport's read error.
func (r *Reader) Recv() (string, error) {
	for {
		if len(r.queue) > 0 {
			next := r.queue[0]
			r.queue = r.queue[1:]
			return next, nil
		}
		if r.err != nil {
			return "", r.err
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			r.queue = append(r.queue, r.dec.Feed(r.buf[:n])...)
		}
		if errors.Is(err, io.EOF) {
			r.queue = append(r.queue, r.dec.Flush()...)
			if r.dec.Emitted() == 0 && r.fallback != "" {
				r.queue = append(r.queue, r.fallback)
				r.fellBack = true
			}
			r.err = io.EOF
			continue
		}
		if err != nil {
			r.err = err
		}
	}
}

// Emitted counts decoded fragments, excluding the fallback.
func (r *Reader) Emitted() int {
	return r.dec.Emitted()
}

// FellBack reports whether the fallback text was produced.
func (r *Reader) FellBack() bool {
	return r.fellBack
}

// Collect drains src and returns every fragment.
func Collect(src io.Reader, opts ...ReaderOption) ([]string, error) {
	r := NewReader(src, opts...)
	var out []string
	for {
		fragment, err := r.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, fragment)
	}
}
