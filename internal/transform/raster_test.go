package transform

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifamed/markup-boilerplate/internal/cache"
)

func testPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, img))
	return buf.Bytes()
}

func TestRasterOptimizer_ShrinksPNG(t *testing.T) {
	in := testPNG(t, 64, 64, color.RGBA{R: 200, A: 255})
	c := cache.New(8)
	o := NewRasterOptimizer(80, c)

	out, err := o.Optimize("logo.png", in)
	require.NoError(t, err)
	assert.Less(t, len(out), len(in))

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 1, c.Len())
}

func TestRasterOptimizer_PassThrough(t *testing.T) {
	o := NewRasterOptimizer(0, nil)
	in := []byte("GIF89a")
	out, err := o.Optimize("anim.gif", in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRasterOptimizer_CorruptImage(t *testing.T) {
	_, err := NewRasterOptimizer(80, nil).Optimize("broken.png", []byte("not a png"))
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "broken.png", ce.File)
}
