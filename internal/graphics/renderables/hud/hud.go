// Package hud draws the text overlay: time cursor, playback state and the
// vertex count of every entity.
package hud

import (
	"fmt"
	"slices"
	"time"

	"lod-spheres/internal/graphics"
	renderer "lod-spheres/internal/graphics/renderer"
	"lod-spheres/internal/profiling"
	"lod-spheres/internal/scene"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// HUD rasterizes its lines on the CPU and redraws one textured quad; the
// texture is only rebuilt when the text changes.
type HUD struct {
	shader  *graphics.Shader
	vao     uint32
	vbo     uint32
	texture uint32
	texW    int
	texH    int

	lines []string
	proj  mgl32.Mat4

	frames       int
	lastFPSCheck time.Time
	currentFPS   int
}

// NewHUD creates a new HUD renderable
func NewHUD() *HUD {
	return &HUD{lastFPSCheck: time.Now()}
}

// Init compiles the text shader and the quad buffers
func (h *HUD) Init() error {
	var err error
	h.shader, err = graphics.NewShader(graphics.TextVertShader, graphics.TextFragShader)
	if err != nil {
		return err
	}

	gl.GenVertexArrays(1, &h.vao)
	gl.BindVertexArray(h.vao)
	gl.GenBuffers(1, &h.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, h.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 6*4*4, nil, gl.DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 4*4, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, 4*4, 2*4)
	gl.BindVertexArray(0)
	return nil
}

// SetViewport updates the pixel-space projection
func (h *HUD) SetViewport(width, height int) {
	h.proj = mgl32.Ortho2D(0, float32(width), float32(height), 0)
}

// Render draws the overlay in the top-left corner
func (h *HUD) Render(ctx renderer.RenderContext) {
	defer profiling.Track("renderer.hud")()

	h.frames++
	if since := time.Since(h.lastFPSCheck); since >= time.Second {
		h.currentFPS = int(float64(h.frames)/since.Seconds() + 0.5)
		h.frames = 0
		h.lastFPSCheck = time.Now()
	}

	lines := Lines(ctx.Scene, ctx.Status, h.currentFPS)
	if !slices.Equal(lines, h.lines) {
		h.lines = lines
		img := graphics.RasterizeLines(graphics.HUDFace, lines)
		if img == nil {
			return
		}
		h.texture = graphics.UploadAlphaTexture(h.texture, img)
		h.texW, h.texH = img.Rect.Dx(), img.Rect.Dy()
		h.uploadQuad()
	}
	if h.texture == 0 {
		return
	}

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	h.shader.Use()
	h.shader.SetMatrix4("proj", &h.proj[0])
	h.shader.SetVector3("color", 0.92, 0.92, 0.92)
	h.shader.SetInt("text", 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, h.texture)
	gl.BindVertexArray(h.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.Disable(gl.BLEND)
	gl.Enable(gl.DEPTH_TEST)
}

func (h *HUD) uploadQuad() {
	quad := Quad(8, 8, float32(h.texW), float32(h.texH))
	gl.BindBuffer(gl.ARRAY_BUFFER, h.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(quad)*4, gl.Ptr(quad))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// Quad returns two triangles (x, y, u, v) covering a w x h pixel rectangle
// at (x, y) with a top-left origin.
func Quad(x, y, w, h float32) []float32 {
	return []float32{
		x, y, 0, 0,
		x, y + h, 0, 1,
		x + w, y + h, 1, 1,
		x, y, 0, 0,
		x + w, y + h, 1, 1,
		x + w, y, 1, 0,
	}
}

// Lines builds the overlay text for the current scene.
func Lines(s *scene.Scene, status []string, fps int) []string {
	lines := make([]string, 0, 4+len(status))
	if s == nil {
		return append(lines, "waiting for data")
	}
	timeline, frame := s.Time()
	if frame < 0 {
		lines = append(lines, "waiting for data")
	} else {
		lines = append(lines, fmt.Sprintf("%s %d", timeline, frame))
	}
	for _, e := range s.Entities() {
		lines = append(lines, fmt.Sprintf("%-10s %9d verts  @%d", e.Path, len(e.Mesh.Vertices), e.Sequence))
	}
	lines = append(lines, status...)
	if fps > 0 {
		lines = append(lines, fmt.Sprintf("%d fps", fps))
	}
	return lines
}

// Dispose cleans up OpenGL resources
func (h *HUD) Dispose() {
	if h.texture != 0 {
		gl.DeleteTextures(1, &h.texture)
	}
	if h.vao != 0 {
		gl.DeleteVertexArrays(1, &h.vao)
	}
	if h.vbo != 0 {
		gl.DeleteBuffers(1, &h.vbo)
	}
	if h.shader != nil {
		h.shader.Delete()
	}
}
