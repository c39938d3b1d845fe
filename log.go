package mist

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// LogMux merges command output from multiple instances into one writer.
//
// Each instance gets its own stream; lines are prefixed with the instance
// name in a distinct color so interleaved output stays readable.
type LogMux struct {
	ctx     context.Context
	w       io.Writer
	wc      chan []byte
	timeout time.Duration
	mu      sync.Mutex
	streams map[string]*LogStream
}

// LogStream is the output stream of one instance.
// A stream should not be shared across goroutines.
type LogStream struct {
	name    string
	timeout time.Duration
	// color assigned to this instance's prefix
	clr colorful.Color
	// rendered line prefix, possibly with ANSI escape sequences
	prefix string
	mu     sync.Mutex
	// buffer for partial lines
	buf bytes.Buffer
	// channel shared with the mux to send completed lines
	wc *chan []byte
	// timer to flush partial lines
	t *time.Timer
}

// NewLogMux allocates and returns a new LogMux writing merged output to w.
func NewLogMux(ctx context.Context, w io.Writer) *LogMux {
	m := &LogMux{
		ctx:     ctx,
		streams: make(map[string]*LogStream),
		timeout: time.Millisecond * 10,
		w:       w,
		wc:      make(chan []byte),
	}

	go m.flush()

	return m
}

// flush receives writes from streams and forwards them to the output writer.
func (m *LogMux) flush() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case buf := <-m.wc:
			m.w.Write(buf)
		}
	}
}

// Stream returns the stream for an instance, creating it if needed.
// Creating a stream recolors all prefixes to spread them over the palette.
func (m *LogMux) Stream(instance string) *LogStream {
	m.mu.Lock()

	defer m.mu.Unlock()

	if s, ok := m.streams[instance]; ok {
		return s
	}

	s := &LogStream{
		name:    instance,
		wc:      &m.wc,
		timeout: m.timeout,
	}

	m.streams[instance] = s

	m.refreshColors()

	return s
}

// refreshColors redistributes stream colors across the color space and
// re-renders the prefixes, padded to the longest instance name.
// Callers must hold the mux lock.
func (m *LogMux) refreshColors() {
	pal := colorful.FastHappyPalette(len(m.streams))

	maxlen := 0
	for _, v := range m.streams {
		l := len(v.name)
		if l > maxlen {
			maxlen = l
		}
	}

	i := 0
	for _, v := range m.streams {
		v.clr = pal[i]

		style := lipgloss.NewStyle().
			Foreground(lipgloss.Color(v.clr.Hex())).
			BorderStyle(lipgloss.NormalBorder()).
			PaddingRight((maxlen - len(v.name)) + 2).
			MarginRight(2).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			BorderRight(true)

		v.prefix = style.Render(v.name)

		i++
	}
}

// Write implements io.Writer for a log stream. Complete lines are forwarded
// immediately; partial lines are held briefly so slow writers still produce
// whole lines.
func (s *LogStream) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.t != nil {
		s.t.Stop()
	}

	n, err = s.buf.Write(p)

	if bytes.ContainsRune(p, '\n') {
		for {
			l, err := s.buf.ReadBytes('\n')

			if err != nil {
				// ReadBytes drained a trailing partial line; put it
				// back and hold it until more bytes or the timer arrive.
				if len(l) > 0 {
					s.buf.Write(l)

					s.armFlush()
				}

				break
			}

			*s.wc <- []byte(s.prefix)
			*s.wc <- l
		}
	} else {
		s.armFlush()
	}

	return n, err
}

// armFlush schedules the buffered partial line to be flushed as a whole
// line once the timeout passes without further writes.
// Callers must hold the stream lock.
func (s *LogStream) armFlush() {
	s.t = time.AfterFunc(s.timeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.buf.Len() == 0 {
			return
		}

		l := append([]byte(nil), s.buf.Bytes()...)

		s.buf.Reset()

		*s.wc <- []byte(s.prefix)
		*s.wc <- l
		*s.wc <- []byte("\n")
	})
}
