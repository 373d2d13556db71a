// Package sink provides the append-only, line-oriented build log that
// invocation progress and subprocess output are written to.
package sink

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Logger writes whole lines to an io.Writer. It is safe for concurrent use so
// the process runner's output reader and the pipeline can share one sink.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
}

// New creates a Logger that writes to the given writer. A nil writer discards.
func New(out io.Writer) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{out: out}
}

// Println writes one line. A trailing newline is appended.
func (l *Logger) Println(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, line)
}

// Printf writes a formatted message to the logger's output writer.
// A newline is automatically appended to the format string.
func (l *Logger) Printf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, format+"\n", v...)
}

// Write implements io.Writer so the Logger can itself be handed to code that
// expects a plain writer.
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Write(p)
}

// Recorder is an io.Writer that keeps every complete line written to it.
// It backs RPC invocations, where the host receives the log after the fact,
// and tests.
type Recorder struct {
	mu      sync.Mutex
	lines   []string
	partial bytes.Buffer
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Write splits p into lines. An unterminated tail is held until the next write or Lines.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.partial.Write(p)
	for {
		data := r.partial.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		r.lines = append(r.lines, strings.TrimSuffix(string(data[:idx]), "\r"))
		r.partial.Next(idx + 1)
	}
	return len(p), nil
}

// Lines returns a copy of the recorded lines, including any unterminated tail.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.lines), len(r.lines)+1)
	copy(out, r.lines)
	if r.partial.Len() > 0 {
		out = append(out, r.partial.String())
	}
	return out
}
