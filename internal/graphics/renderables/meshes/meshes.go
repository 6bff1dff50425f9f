// Package meshes draws the latest triangle mesh of every scene entity.
package meshes

import (
	"lod-spheres/internal/config"
	"lod-spheres/internal/graphics"
	renderer "lod-spheres/internal/graphics/renderer"
	"lod-spheres/internal/profiling"
	"lod-spheres/internal/recording"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

const floatsPerVertex = 6

// Palette cycles per entity, in path order.
var Palette = []mgl32.Vec3{
	{0.95, 0.55, 0.25},
	{0.35, 0.70, 0.95},
	{0.55, 0.85, 0.40},
	{0.85, 0.45, 0.80},
}

type gpuMesh struct {
	vao      uint32
	vbo      uint32
	count    int32
	capacity int
	version  uint64
}

// Meshes keeps one VAO/VBO per entity path and re-uploads when the entity's
// mesh version changes.
type Meshes struct {
	shader   *graphics.Shader
	lightDir mgl32.Vec3
	buffers  map[string]*gpuMesh
	scratch  []float32
}

// NewMeshes creates the mesh renderable
func NewMeshes() *Meshes {
	return &Meshes{
		lightDir: mgl32.Vec3{-0.4, -1, -0.6}.Normalize(),
		buffers:  make(map[string]*gpuMesh),
	}
}

// Init compiles the mesh shader
func (m *Meshes) Init() error {
	var err error
	m.shader, err = graphics.NewShader(graphics.MeshVertShader, graphics.MeshFragShader)
	return err
}

func (m *Meshes) SetViewport(width, height int) {}

// Render draws every entity with a mesh
func (m *Meshes) Render(ctx renderer.RenderContext) {
	if ctx.Scene == nil {
		return
	}
	defer profiling.Track("renderer.meshes")()

	m.shader.Use()
	m.shader.SetMatrix4("proj", &ctx.Proj[0])
	m.shader.SetMatrix4("view", &ctx.View[0])
	m.shader.SetVec3("lightDir", m.lightDir)
	m.shader.SetVec3("eye", ctx.Camera.Position())

	wireframe := config.GetWireframe()
	m.shader.SetBool("unlit", wireframe)
	if wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
		gl.Disable(gl.CULL_FACE)
	}

	for i, e := range ctx.Scene.Entities() {
		buf := m.upload(e.Path, e.Mesh, e.Version)
		if buf.count == 0 {
			continue
		}
		model := ctx.Scene.ModelMatrix(e)
		m.shader.SetMatrix4("model", &model[0])
		m.shader.SetVec3("color", Palette[i%len(Palette)])

		gl.BindVertexArray(buf.vao)
		gl.DrawArrays(gl.TRIANGLES, 0, buf.count)
	}
	gl.BindVertexArray(0)

	if wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
		gl.Enable(gl.CULL_FACE)
	}
}

// upload refreshes the GPU copy of an entity's mesh if it changed
func (m *Meshes) upload(path string, mesh recording.Mesh3D, version uint64) *gpuMesh {
	buf, ok := m.buffers[path]
	if !ok {
		buf = &gpuMesh{}
		gl.GenVertexArrays(1, &buf.vao)
		gl.GenBuffers(1, &buf.vbo)
		gl.BindVertexArray(buf.vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, buf.vbo)
		gl.EnableVertexAttribArray(0)
		gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, floatsPerVertex*4, 0)
		gl.EnableVertexAttribArray(1)
		gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, floatsPerVertex*4, 3*4)
		gl.BindVertexArray(0)
		m.buffers[path] = buf
	}
	if ok && buf.version == version {
		return buf
	}
	defer profiling.Track("renderer.meshes.upload")()

	m.scratch = Interleave(m.scratch[:0], mesh)
	buf.count = int32(len(mesh.Vertices))
	buf.version = version

	gl.BindBuffer(gl.ARRAY_BUFFER, buf.vbo)
	size := len(m.scratch) * 4
	if size == 0 {
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
		return buf
	}
	// Reuse the allocation while the mesh fits
	if size <= buf.capacity {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, size, gl.Ptr(m.scratch))
	} else {
		gl.BufferData(gl.ARRAY_BUFFER, size, gl.Ptr(m.scratch), gl.DYNAMIC_DRAW)
		buf.capacity = size
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return buf
}

// Interleave appends position/normal pairs to dst. Missing normals are zero.
func Interleave(dst []float32, mesh recording.Mesh3D) []float32 {
	for i, v := range mesh.Vertices {
		var n mgl32.Vec3
		if i < len(mesh.Normals) {
			n = mesh.Normals[i]
		}
		dst = append(dst, v[0], v[1], v[2], n[0], n[1], n[2])
	}
	return dst
}

// Dispose cleans up OpenGL resources
func (m *Meshes) Dispose() {
	for path, buf := range m.buffers {
		gl.DeleteBuffers(1, &buf.vbo)
		gl.DeleteVertexArrays(1, &buf.vao)
		delete(m.buffers, path)
	}
	if m.shader != nil {
		m.shader.Delete()
	}
}
