package recording

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Kind tags a payload on the wire.
type Kind uint8

const (
	KindMesh3D Kind = iota + 1
	KindTransform3D
	KindViewCoordinates
)

func (k Kind) String() string {
	switch k {
	case KindMesh3D:
		return "Mesh3D"
	case KindTransform3D:
		return "Transform3D"
	case KindViewCoordinates:
		return "ViewCoordinates"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Payload is something that can be logged to an entity path.
type Payload interface {
	Kind() Kind
}

// Mesh3D is a flat triangle list: every 3 consecutive vertices form a
// triangle. Normals are optional but, when present, match Vertices one to one.
type Mesh3D struct {
	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
}

// NewMesh3D wraps a triangle list without copying it.
func NewMesh3D(vertices []mgl32.Vec3) Mesh3D {
	return Mesh3D{Vertices: vertices}
}

// WithVertexNormals attaches per-vertex normals.
func (m Mesh3D) WithVertexNormals(normals []mgl32.Vec3) Mesh3D {
	m.Normals = normals
	return m
}

func (Mesh3D) Kind() Kind { return KindMesh3D }

// Validate checks the triangle list shape.
func (m Mesh3D) Validate() error {
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("%w: %d vertices, %d normals", ErrNormalCountMismatch, len(m.Vertices), len(m.Normals))
	}
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("%w: %d vertices", ErrNotTriangleList, len(m.Vertices))
	}
	return nil
}

// Transform3D places an entity (and its children) relative to its parent.
type Transform3D struct {
	Translation mgl32.Vec3
}

// FromTranslation builds a pure translation.
func FromTranslation(t mgl32.Vec3) Transform3D {
	return Transform3D{Translation: t}
}

func (Transform3D) Kind() Kind { return KindTransform3D }

// Matrix returns the affine transform as a 4x4 matrix.
func (t Transform3D) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2])
}

// ViewDir is the direction an axis points to from the viewer's standpoint.
type ViewDir uint8

const (
	DirUp ViewDir = iota + 1
	DirDown
	DirRight
	DirLeft
	DirForward
	DirBack
)

var viewDirNames = map[ViewDir]string{
	DirUp: "U", DirDown: "D", DirRight: "R", DirLeft: "L", DirForward: "F", DirBack: "B",
}

// vector returns the direction in the viewer's GL space (X right, Y up, -Z forward).
func (d ViewDir) vector() (mgl32.Vec3, bool) {
	switch d {
	case DirUp:
		return mgl32.Vec3{0, 1, 0}, true
	case DirDown:
		return mgl32.Vec3{0, -1, 0}, true
	case DirRight:
		return mgl32.Vec3{1, 0, 0}, true
	case DirLeft:
		return mgl32.Vec3{-1, 0, 0}, true
	case DirForward:
		return mgl32.Vec3{0, 0, -1}, true
	case DirBack:
		return mgl32.Vec3{0, 0, 1}, true
	}
	return mgl32.Vec3{}, false
}

// ViewCoordinates declares what the X, Y and Z axes of an entity mean.
type ViewCoordinates [3]ViewDir

var (
	RightHandYUp = ViewCoordinates{DirRight, DirUp, DirBack}
	RightHandZUp = ViewCoordinates{DirRight, DirForward, DirUp}
	LeftHandYUp  = ViewCoordinates{DirRight, DirUp, DirForward}
)

func (ViewCoordinates) Kind() Kind { return KindViewCoordinates }

func (vc ViewCoordinates) String() string {
	s := ""
	for _, d := range vc {
		name, ok := viewDirNames[d]
		if !ok {
			name = "?"
		}
		s += name
	}
	return s
}

// Validate checks that the three directions are known and span 3D space.
func (vc ViewCoordinates) Validate() error {
	var seen [3]bool
	for _, d := range vc {
		v, ok := d.vector()
		if !ok {
			return fmt.Errorf("%w: %s", ErrInvalidViewCoordinates, vc)
		}
		for axis := 0; axis < 3; axis++ {
			if v[axis] != 0 {
				if seen[axis] {
					return fmt.Errorf("%w: %s", ErrInvalidViewCoordinates, vc)
				}
				seen[axis] = true
			}
		}
	}
	return nil
}

// Basis maps a point expressed in these coordinates into the viewer's
// right-handed Y-up space.
func (vc ViewCoordinates) Basis() mgl32.Mat4 {
	var cols [3]mgl32.Vec3
	for i, d := range vc {
		cols[i], _ = d.vector()
	}
	return mgl32.Mat3FromCols(cols[0], cols[1], cols[2]).Mat4()
}

// RightHanded reports whether the axes form a right-handed system.
func (vc ViewCoordinates) RightHanded() bool {
	var cols [3]mgl32.Vec3
	for i, d := range vc {
		cols[i], _ = d.vector()
	}
	return cols[0].Cross(cols[1]).Dot(cols[2]) > 0
}
