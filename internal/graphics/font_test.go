package graphics

import (
	"io/fs"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureLines(t *testing.T) {
	w, h := MeasureLines(HUDFace, []string{"abc", "frame 10"})
	// Face7x13 advances 7px per glyph and is 13px tall.
	assert.Equal(t, 8*7+2*TextPadding, w)
	assert.Equal(t, 2*13+2*TextPadding, h)

	w, h = MeasureLines(HUDFace, nil)
	assert.Equal(t, 2*TextPadding, w)
	assert.Equal(t, 2*TextPadding, h)
}

func TestRasterizeLines(t *testing.T) {
	assert.Nil(t, RasterizeLines(HUDFace, nil))

	img := RasterizeLines(HUDFace, []string{"LOD_10 600", "", "#"})
	require.NotNil(t, img)
	w, h := MeasureLines(HUDFace, []string{"LOD_10 600", "", "#"})
	assert.Equal(t, w, img.Rect.Dx())
	assert.Equal(t, h, img.Rect.Dy())

	inked := func(y0, y1 int) int {
		n := 0
		for y := y0; y < y1; y++ {
			for x := 0; x < img.Rect.Dx(); x++ {
				if img.AlphaAt(x, y).A > 0 {
					n++
				}
			}
		}
		return n
	}
	line := 13
	assert.Positive(t, inked(TextPadding, TextPadding+line))
	assert.Zero(t, inked(TextPadding+line, TextPadding+2*line), "blank line stays blank")
	assert.Positive(t, inked(TextPadding+2*line, TextPadding+3*line))
	assert.Zero(t, inked(0, TextPadding), "top padding stays blank")
}

func TestEmbeddedShaders(t *testing.T) {
	for _, name := range []string{MeshVertShader, MeshFragShader, TextVertShader, TextFragShader} {
		src, err := fs.ReadFile(shaderFiles, path.Join(ShadersDir, name))
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(string(src), "#version 410 core"), name)
	}
}

func TestMeshShaderLightsFacingSide(t *testing.T) {
	src, err := fs.ReadFile(shaderFiles, path.Join(ShadersDir, MeshFragShader))
	require.NoError(t, err)
	assert.Contains(t, string(src), "uniform vec3 eye;")
	assert.Contains(t, string(src), "dot(n, eye - vWorldPos) < 0.0")
}
