package recording

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"
)

// EntityStats aggregates the messages logged to one entity path.
type EntityStats struct {
	Path      string
	Static    int
	Temporal  int
	Meshes    int
	Vertices  int64
	MaxMesh   int
	FirstSeq  int64
	LastSeq   int64
	Timelines map[string]int
	LastKind  Kind
}

// Summary aggregates a recording without keeping the payloads around.
type Summary struct {
	AppID    string
	Messages int
	entities map[string]*EntityStats
}

// NewSummary creates an empty summary.
func NewSummary(appID string) *Summary {
	return &Summary{AppID: appID, entities: make(map[string]*EntityStats)}
}

// Add folds one message into the summary.
func (s *Summary) Add(msg Message) {
	s.Messages++
	e, ok := s.entities[msg.Path]
	if !ok {
		e = &EntityStats{Path: msg.Path, Timelines: make(map[string]int), FirstSeq: msg.Sequence, LastSeq: msg.Sequence}
		s.entities[msg.Path] = e
	}
	if msg.Payload != nil {
		e.LastKind = msg.Payload.Kind()
	}
	if msg.Static {
		e.Static++
	} else {
		if e.Temporal == 0 {
			e.FirstSeq, e.LastSeq = msg.Sequence, msg.Sequence
		}
		e.Temporal++
		e.Timelines[msg.Timeline]++
		e.FirstSeq = min(e.FirstSeq, msg.Sequence)
		e.LastSeq = max(e.LastSeq, msg.Sequence)
	}
	if m, ok := msg.Payload.(Mesh3D); ok {
		e.Meshes++
		e.Vertices += int64(len(m.Vertices))
		e.MaxMesh = max(e.MaxMesh, len(m.Vertices))
	}
}

// Entity returns the stats for path.
func (s *Summary) Entity(path string) (EntityStats, bool) {
	e, ok := s.entities[path]
	if !ok {
		return EntityStats{}, false
	}
	return *e, true
}

// Entities returns all entity stats sorted by path.
func (s *Summary) Entities() []EntityStats {
	out := make([]EntityStats, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// TotalVertices sums mesh vertices over every entity.
func (s *Summary) TotalVertices() int64 {
	var n int64
	for _, e := range s.entities {
		n += e.Vertices
	}
	return n
}

// WriteTo prints a table of the summary.
func (s *Summary) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	fmt.Fprintf(cw, "app: %s\nmessages: %d\nvertices: %d\n\n", s.AppID, s.Messages, s.TotalVertices())
	tw := tabwriter.NewWriter(cw, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tKIND\tSTATIC\tTEMPORAL\tMESHES\tMAX VERTS\tSEQ RANGE")
	for _, e := range s.Entities() {
		seq := "-"
		if e.Temporal > 0 {
			seq = fmt.Sprintf("%d..%d", e.FirstSeq, e.LastSeq)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n", e.Path, e.LastKind, e.Static, e.Temporal, e.Meshes, e.MaxMesh, seq)
	}
	err := tw.Flush()
	if err == nil {
		err = cw.err
	}
	return cw.n, err
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil && c.err == nil {
		c.err = err
	}
	return n, err
}

// SummarizeFile streams a saved recording into a Summary.
func SummarizeFile(path string) (*Summary, error) {
	dec, f, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := NewSummary(dec.AppID())
	for {
		msg, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return s, fmt.Errorf("%s: record %d: %w", path, s.Messages, err)
		}
		s.Add(msg)
	}
}

// SummarySink folds every message into a Summary and drops the payload.
type SummarySink struct {
	mu      sync.Mutex
	summary *Summary
	closed  bool
}

// NewSummarySink creates a sink summarizing a recording of appID.
func NewSummarySink(appID string) *SummarySink {
	return &SummarySink{summary: NewSummary(appID)}
}

func (s *SummarySink) Send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.summary.Add(msg)
	return nil
}

func (s *SummarySink) Flush() error { return nil }

func (s *SummarySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Summary returns the summary; read it after the stream is closed.
func (s *SummarySink) Summary() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}
