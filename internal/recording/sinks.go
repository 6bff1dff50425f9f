package recording

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// MemorySink keeps every message in memory.
type MemorySink struct {
	mu       sync.Mutex
	messages []Message
	closed   bool
}

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *MemorySink) Flush() error { return nil }

func (s *MemorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Messages returns a copy of the received messages.
func (s *MemorySink) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// MultiSink fans every message out to all of its sinks.
type MultiSink []Sink

func (m MultiSink) Send(msg Message) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Flush() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// FileSink writes the recording to a file.
type FileSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
	enc  *Encoder
}

// CreateFile creates (or truncates) path and writes the recording header.
func CreateFile(path, appID string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	enc, err := NewEncoder(f, appID)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileSink{path: path, f: f, enc: enc}, nil
}

// Path returns the file being written.
func (s *FileSink) Path() string {
	return s.path
}

func (s *FileSink) Send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrStreamClosed
	}
	return s.enc.Encode(msg)
}

func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	return s.enc.Flush()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := errors.Join(s.enc.Flush(), s.f.Close())
	s.f = nil
	return err
}

// OpenFile opens a recording for reading. The caller closes the returned file.
func OpenFile(path string) (*Decoder, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open recording: %w", err)
	}
	dec, err := NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return dec, f, nil
}
