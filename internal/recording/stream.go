// Package recording carries logged entities (meshes, transforms, view
// coordinates) from a producer to one or more sinks, stamped with a
// position on a named time sequence.
package recording

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNormalCountMismatch    = errors.New("normal count does not match vertex count")
	ErrNotTriangleList        = errors.New("vertex count is not a multiple of 3")
	ErrInvalidViewCoordinates = errors.New("invalid view coordinates")
	ErrEmptyPath              = errors.New("empty entity path")
	ErrStreamClosed           = errors.New("recording stream is closed")
)

// Message is one logged payload. Static messages hold for the whole
// recording and carry no time.
type Message struct {
	Path     string
	Timeline string
	Sequence int64
	Static   bool
	Payload  Payload
}

// Sink receives messages from a RecordingStream.
type Sink interface {
	Send(msg Message) error
	Flush() error
	Close() error
}

// RecordingStream stamps logged payloads with the current time and forwards
// them to a sink. It is safe for concurrent use; the time cursor is shared.
type RecordingStream struct {
	appID string
	sink  Sink

	mu       sync.Mutex
	timeline string
	sequence int64
	closed   bool
	sent     int
}

// NewRecordingStream creates a stream for the given application id.
func NewRecordingStream(appID string, sink Sink) *RecordingStream {
	return &RecordingStream{appID: appID, sink: sink}
}

// AppID returns the application id given at creation.
func (rs *RecordingStream) AppID() string {
	return rs.appID
}

// SetTimeSequence moves the time cursor used by subsequent Log calls.
func (rs *RecordingStream) SetTimeSequence(timeline string, sequence int64) {
	rs.mu.Lock()
	rs.timeline = timeline
	rs.sequence = sequence
	rs.mu.Unlock()
}

// Time returns the current time cursor.
func (rs *RecordingStream) Time() (timeline string, sequence int64) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.timeline, rs.sequence
}

// Log records payload at path on the current time cursor.
func (rs *RecordingStream) Log(path string, payload Payload) error {
	rs.mu.Lock()
	msg := Message{Path: path, Timeline: rs.timeline, Sequence: rs.sequence, Payload: payload}
	rs.mu.Unlock()
	return rs.send(msg)
}

// LogStatic records payload at path for all times.
func (rs *RecordingStream) LogStatic(path string, payload Payload) error {
	return rs.send(Message{Path: path, Static: true, Payload: payload})
}

func (rs *RecordingStream) send(msg Message) error {
	if err := validate(msg); err != nil {
		return fmt.Errorf("log %s: %w", msg.Path, err)
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.closed {
		return ErrStreamClosed
	}
	if err := rs.sink.Send(msg); err != nil {
		return fmt.Errorf("log %s: %w", msg.Path, err)
	}
	rs.sent++
	return nil
}

// Sent returns the number of messages accepted by the sink.
func (rs *RecordingStream) Sent() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.sent
}

// Flush flushes the sink.
func (rs *RecordingStream) Flush() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.closed {
		return ErrStreamClosed
	}
	return rs.sink.Flush()
}

// Close flushes and closes the sink. Further logging fails with ErrStreamClosed.
func (rs *RecordingStream) Close() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.closed {
		return nil
	}
	rs.closed = true
	return errors.Join(rs.sink.Flush(), rs.sink.Close())
}

func validate(msg Message) error {
	if msg.Path == "" {
		return ErrEmptyPath
	}
	switch p := msg.Payload.(type) {
	case Mesh3D:
		return p.Validate()
	case ViewCoordinates:
		return p.Validate()
	case Transform3D:
		return nil
	case nil:
		return fmt.Errorf("%w: nil", ErrUnknownPayload)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownPayload, p)
	}
}
