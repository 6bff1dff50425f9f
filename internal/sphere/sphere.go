// Package sphere builds flat-shaded UV sphere meshes as unindexed triangle lists.
package sphere

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is number of float32 per interleaved vertex (pos.xyz + normal.xyz)
const VertexStride = 6

// VerticesPerQuad is the number of emitted vertices per grid cell (2 triangles)
const VerticesPerQuad = 6

// degenerateEps bounds |cross| relative to the longest squared edge. Below it the
// triangle is treated as collapsed and its normal comes from the centroid instead.
const degenerateEps = 1e-5

// Mesh is a flat triangle list with one normal per vertex slot.
// Vertices and Normals always have the same length, a multiple of 3.
type Mesh struct {
	Radius       float32
	Subdivisions int
	Vertices     []mgl32.Vec3
	Normals      []mgl32.Vec3
}

// VertexCount returns 6*N*N for a mesh built with N subdivisions.
func VertexCount(subdivisions int) int {
	if subdivisions <= 0 {
		return 0
	}
	return VerticesPerQuad * subdivisions * subdivisions
}

// Generate builds a sphere of the given radius centered on the origin.
//
// The polar angle [0, pi] and the azimuth [0, 2pi] are both split into
// subdivisions steps. Every grid cell emits two triangles, each carrying its
// own face normal on all three vertices. Normals are taken from the second
// corner of A (v2,v1,v3) and the second corner of B (v4,v2,v3), so they
// point towards the center. A subdivision count of zero or less yields an
// empty mesh.
func Generate(radius float32, subdivisions int) Mesh {
	m := Mesh{Radius: radius, Subdivisions: subdivisions}
	if subdivisions <= 0 {
		return m
	}

	n := VertexCount(subdivisions)
	m.Vertices = make([]mgl32.Vec3, 0, n)
	m.Normals = make([]mgl32.Vec3, 0, n)

	phiStep := float32(math.Pi) / float32(subdivisions)
	thetaStep := 2 * float32(math.Pi) / float32(subdivisions)

	// Ring and column angles are shared by neighbouring cells; evaluate the
	// trig once per grid line instead of four times per cell.
	sinPhi, cosPhi := angleTable(phiStep, subdivisions)
	sinTheta, cosTheta := angleTable(thetaStep, subdivisions)

	corner := func(i, j int) mgl32.Vec3 {
		return mgl32.Vec3{
			radius * sinPhi[i] * cosTheta[j],
			radius * sinPhi[i] * sinTheta[j],
			radius * cosPhi[i],
		}
	}

	for i := 0; i < subdivisions; i++ {
		for j := 0; j < subdivisions; j++ {
			v1 := corner(i, j)
			v2 := corner(i+1, j)
			v3 := corner(i, j+1)
			v4 := corner(i+1, j+1)

			// Triangle A: v1,v2,v3
			na := FaceNormal(v2, v1, v3)
			m.Vertices = append(m.Vertices, v1, v2, v3)
			m.Normals = append(m.Normals, na, na, na)

			// Triangle B: v2,v4,v3 (shares the v2-v3 diagonal with A)
			nb := FaceNormal(v4, v2, v3)
			m.Vertices = append(m.Vertices, v2, v4, v3)
			m.Normals = append(m.Normals, nb, nb, nb)
		}
	}

	return m
}

func angleTable(step float32, subdivisions int) (sin, cos []float32) {
	sin = make([]float32, subdivisions+1)
	cos = make([]float32, subdivisions+1)
	for k := range sin {
		a := float32(k) * step
		sin[k] = math32.Sin(a)
		cos[k] = math32.Cos(a)
	}
	return sin, cos
}

// FaceNormal returns normalize((p2-p1) x (p3-p1)).
//
// Collapsed triangles (two coincident corners at a pole, or radius 0) have no
// usable cross product. For those the unit direction from the centroid to the
// origin is returned, matching the inward normals of Generate; a centroid at
// the origin gives the zero vector.
func FaceNormal(p1, p2, p3 mgl32.Vec3) mgl32.Vec3 {
	e1 := p2.Sub(p1)
	e2 := p3.Sub(p1)
	e3 := p3.Sub(p2)
	cross := e1.Cross(e2)
	crossLen := math32.Sqrt(cross.Dot(cross))

	longest := max(e1.Dot(e1), e2.Dot(e2), e3.Dot(e3))
	if crossLen > degenerateEps*longest && crossLen > 0 {
		return cross.Mul(1 / crossLen)
	}

	c := p1.Add(p2).Add(p3)
	cl := math32.Sqrt(c.Dot(c))
	if cl == 0 {
		return mgl32.Vec3{}
	}
	return c.Mul(-1 / cl)
}

// VertexCount returns the number of emitted vertices.
func (m Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles in the list.
func (m Mesh) TriangleCount() int {
	return len(m.Vertices) / 3
}

// Empty reports whether the mesh has no geometry.
func (m Mesh) Empty() bool {
	return len(m.Vertices) == 0
}

// Interleaved packs the mesh as pos.xyz + normal.xyz per vertex, ready for a
// single GL_ARRAY_BUFFER upload.
func (m Mesh) Interleaved() []float32 {
	out := make([]float32, 0, len(m.Vertices)*VertexStride)
	for i, v := range m.Vertices {
		n := m.Normals[i]
		out = append(out, v[0], v[1], v[2], n[0], n[1], n[2])
	}
	return out
}

// Triangle returns the three corners and the face normal of triangle t.
func (m Mesh) Triangle(t int) (a, b, c, normal mgl32.Vec3) {
	k := t * 3
	return m.Vertices[k], m.Vertices[k+1], m.Vertices[k+2], m.Normals[k]
}
