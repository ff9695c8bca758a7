package bridge

import (
	"bytes"
	"log"
	"sync"

	"loghelper/internal/severity"
	"loghelper/internal/sink"
)

// Writer emits every complete line written to it into a sink at a fixed
// level. A trailing partial line is held until the next newline or Flush.
type Writer struct {
	sink  *sink.Sink
	level severity.Level

	mu  sync.Mutex
	buf []byte
}

func NewWriter(s *sink.Sink, level severity.Level) *Writer {
	return &Writer{sink: s, level: level}
}

// NewStdLogger returns a standard library logger writing into s. The sink
// formatter adds timestamps, so the logger carries no prefix or flags.
func NewStdLogger(s *sink.Sink, level severity.Level) *log.Logger {
	return log.New(NewWriter(s, level), "", 0)
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(w.buf[:i], "\r")
		w.buf = w.buf[i+1:]
		if len(line) > 0 {
			w.sink.Log(w.level, string(line))
		}
	}
	return len(p), nil
}

// Flush emits a pending partial line.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.sink.Log(w.level, string(w.buf))
		w.buf = nil
	}
}
