package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"lod-spheres/internal/recording"
)

// Source yields recorded messages in order. Next returns io.EOF once the
// recording ends.
type Source interface {
	Next() (recording.Message, error)
	Close() error
}

// FileSource replays a saved recording.
type FileSource struct {
	dec  *recording.Decoder
	file *os.File
}

// OpenFileSource opens a recording written by recording.FileSink.
func OpenFileSource(path string) (*FileSource, error) {
	dec, f, err := recording.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{dec: dec, file: f}, nil
}

// AppID returns the recording's application id.
func (s *FileSource) AppID() string {
	return s.dec.AppID()
}

func (s *FileSource) Next() (recording.Message, error) {
	return s.dec.Decode()
}

func (s *FileSource) Close() error {
	return s.file.Close()
}

// ListenerSource adapts a recording.Listener, which accepts pushed streams.
type ListenerSource struct {
	l *recording.Listener
}

func NewListenerSource(l *recording.Listener) *ListenerSource {
	return &ListenerSource{l: l}
}

// Next waits for the next pushed message; it only ends when the listener
// is closed.
func (s *ListenerSource) Next() (recording.Message, error) {
	select {
	case msg := <-s.l.Messages():
		return msg, nil
	case <-s.l.Done():
		return recording.Message{}, io.EOF
	}
}

func (s *ListenerSource) Close() error {
	return s.l.Close()
}

// Pipe connects an in-process producer to the viewer. The pipe itself is
// the producer's recording.Sink; Source returns the viewer's end. Send
// blocks while the buffer is full, which paces the producer to the viewer.
type Pipe struct {
	ch   chan recording.Message
	done chan struct{}

	mu        sync.Mutex
	closed    bool
	abortOnce sync.Once
}

// NewPipe creates a pipe buffering up to buffer messages.
func NewPipe(buffer int) *Pipe {
	return &Pipe{
		ch:   make(chan recording.Message, max(buffer, 0)),
		done: make(chan struct{}),
	}
}

func (p *Pipe) Send(msg recording.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return recording.ErrStreamClosed
	}
	select {
	case p.ch <- msg:
		return nil
	case <-p.done:
		return fmt.Errorf("viewer closed: %w", recording.ErrStreamClosed)
	}
}

func (p *Pipe) Flush() error { return nil }

// Close ends the stream from the producer side; the viewer still drains
// what is buffered.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}

// Source returns the viewer's end of the pipe. Closing it aborts the pipe.
func (p *Pipe) Source() Source {
	return pipeSource{p}
}

type pipeSource struct{ p *Pipe }

func (s pipeSource) Next() (recording.Message, error) { return s.p.next() }

func (s pipeSource) Close() error {
	s.p.Abort()
	return nil
}

// next returns the next message; io.EOF after Close once drained.
func (p *Pipe) next() (recording.Message, error) {
	select {
	case msg, ok := <-p.ch:
		if !ok {
			return recording.Message{}, io.EOF
		}
		return msg, nil
	case <-p.done:
		return recording.Message{}, io.EOF
	}
}

// Abort is the viewer side of Close: pending and future Sends fail so the
// producer stops.
func (p *Pipe) Abort() {
	p.abortOnce.Do(func() { close(p.done) })
}

// Pump copies src into out until src ends or ctx is done, then closes out.
// A clean end of the recording returns nil.
func Pump(ctx context.Context, src Source, out chan<- recording.Message) error {
	defer close(out)
	for {
		msg, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read recording: %w", err)
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
