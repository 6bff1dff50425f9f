package meshes

import (
	"testing"

	"lod-spheres/internal/recording"
	"lod-spheres/internal/sphere"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestInterleaveMatchesSphereLayout(t *testing.T) {
	m := sphere.Generate(3, 5)
	got := Interleave(nil, recording.NewMesh3D(m.Vertices).WithVertexNormals(m.Normals))
	assert.Equal(t, m.Interleaved(), got)
	assert.Len(t, got, m.VertexCount()*floatsPerVertex)
}

func TestInterleaveWithoutNormals(t *testing.T) {
	mesh := recording.NewMesh3D([]mgl32.Vec3{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
	got := Interleave([]float32{42}, mesh)
	assert.Equal(t, []float32{42, 1, 2, 3, 0, 0, 0, 4, 5, 6, 0, 0, 0, 7, 8, 9, 0, 0, 0}, got)
}
