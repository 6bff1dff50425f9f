// Package scene holds the viewer-side state built from recorded messages:
// the latest mesh per entity, static transforms and the axis convention.
package scene

import (
	"fmt"
	"sort"

	"lod-spheres/internal/recording"

	"github.com/go-gl/mathgl/mgl32"
)

// Entity is the current state of one entity path.
type Entity struct {
	Path      string
	Mesh      recording.Mesh3D
	HasMesh   bool
	Transform mgl32.Mat4
	// Sequence is the time of the latest mesh.
	Sequence int64
	// Version increases every time the mesh is replaced.
	Version uint64
	Meshes  int
}

// Scene applies messages in arrival order. It is not safe for concurrent use;
// the viewer owns it on the render thread.
type Scene struct {
	entities map[string]*Entity
	order    []string
	basis    mgl32.Mat4
	view     recording.ViewCoordinates
	hasView  bool
	timeline string
	frame    int64
	applied  int
}

// New returns an empty scene with the viewer's native axes.
func New() *Scene {
	return &Scene{
		entities: make(map[string]*Entity),
		basis:    mgl32.Ident4(),
		frame:    -1,
	}
}

func (s *Scene) entity(path string) *Entity {
	e, ok := s.entities[path]
	if !ok {
		e = &Entity{Path: path, Transform: mgl32.Ident4()}
		s.entities[path] = e
		s.order = append(s.order, path)
	}
	return e
}

// Apply folds one message into the scene.
func (s *Scene) Apply(msg recording.Message) error {
	switch p := msg.Payload.(type) {
	case recording.Mesh3D:
		e := s.entity(msg.Path)
		e.Mesh = p
		e.HasMesh = true
		e.Sequence = msg.Sequence
		e.Version++
		e.Meshes++
	case recording.Transform3D:
		s.entity(msg.Path).Transform = p.Matrix()
	case recording.ViewCoordinates:
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", msg.Path, err)
		}
		s.view = p
		s.hasView = true
		s.basis = p.Basis()
	default:
		return fmt.Errorf("%s: %w: %T", msg.Path, recording.ErrUnknownPayload, msg.Payload)
	}
	if !msg.Static {
		s.timeline = msg.Timeline
		if msg.Sequence > s.frame {
			s.frame = msg.Sequence
		}
	}
	s.applied++
	return nil
}

// Entities returns entities that have a mesh, sorted by path.
func (s *Scene) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, p := range s.order {
		if e := s.entities[p]; e.HasMesh {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Entity looks up one entity by path.
func (s *Scene) Entity(path string) (*Entity, bool) {
	e, ok := s.entities[path]
	return e, ok
}

// ModelMatrix is the full world transform of an entity.
func (s *Scene) ModelMatrix(e *Entity) mgl32.Mat4 {
	return s.basis.Mul4(e.Transform)
}

// ViewCoordinates returns the logged axis convention, if any.
func (s *Scene) ViewCoordinates() (recording.ViewCoordinates, bool) {
	return s.view, s.hasView
}

// Time returns the latest timeline and sequence seen; sequence is -1 before
// the first timed message.
func (s *Scene) Time() (timeline string, frame int64) {
	return s.timeline, s.frame
}

// Applied returns the number of messages folded in.
func (s *Scene) Applied() int {
	return s.applied
}

// Bounds returns a bounding sphere around every mesh in world space.
func (s *Scene) Bounds() (center mgl32.Vec3, radius float32) {
	var lo, hi mgl32.Vec3
	first := true
	for _, e := range s.Entities() {
		m := s.ModelMatrix(e)
		for _, v := range e.Mesh.Vertices {
			w := mgl32.TransformCoordinate(v, m)
			if first {
				lo, hi = w, w
				first = false
				continue
			}
			for i := range 3 {
				lo[i] = min(lo[i], w[i])
				hi[i] = max(hi[i], w[i])
			}
		}
	}
	if first {
		return mgl32.Vec3{}, 0
	}
	center = lo.Add(hi).Mul(0.5)
	return center, hi.Sub(center).Len()
}
