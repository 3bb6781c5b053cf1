package sprite

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestGroup(t *testing.T) {
	groups, folders := Group([]string{"iconsB/b.png", "iconsA/z.png", "iconsA/a.png", "loose.png", "iconsA/nested/c.png"})
	assert.Equal(t, []string{"iconsA", "iconsB"}, folders)
	assert.Equal(t, []string{"iconsA/a.png", "iconsA/nested/c.png", "iconsA/z.png"}, groups["iconsA"])
	assert.Equal(t, []string{"iconsB/b.png"}, groups["iconsB"])
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"iconsA":       "iconsA",
		"Social Icons": "Social-Icons",
		"icons.a":      "icons-a",
		"café":         "cafe",
		"2x":           "s-2x",
		"***":          "sprite",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
	assert.Equal(t, "arrow-left", FileSlug("arrow_left.png"))
	assert.Equal(t, "sprites-iconsA.png", SheetName("iconsA", ".png"))
	assert.Equal(t, "sprites-icons-a.png", SheetName("icons.a", ".png"))
	assert.Equal(t, "_sprites-iconsA.scss", FragmentName("iconsA"))
	assert.Equal(t, "iconsA__arrow-left", MemberName("iconsA", "nested/arrow_left.png"))
}

func TestCheckUnique(t *testing.T) {
	require.NoError(t, CheckUnique([]string{"iconsA", "iconsB", "icons.a"}, Slug))

	err := CheckUnique([]string{"icons-a", "icons_a"}, Slug)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"icons-a" and "icons_a" both map to "icons-a"`)

	fileSlug := func(p string) string { return FileSlug(path.Base(p)) }
	require.Error(t, CheckUnique([]string{"ui/a.png", "ui/nested/a.png"}, fileSlug))
	require.NoError(t, CheckUnique([]string{"ui/a.png", "ui/b.png"}, fileSlug))
}

func TestPackPNG(t *testing.T) {
	sheet, err := PackPNG([]Image{
		{Name: "a.png", Img: solid(10, 4, color.RGBA{R: 255, A: 255})},
		{Name: "b.png", Img: solid(6, 8, color.RGBA{B: 255, A: 255})},
	}, 2)
	require.NoError(t, err)
	assert.Equal(t, 10, sheet.Width)
	assert.Equal(t, 14, sheet.Height)
	assert.Equal(t, Frame{Name: "b.png", X: 0, Y: 6, Width: 6, Height: 8}, sheet.Frames[1])

	img, err := png.Decode(bytes.NewReader(sheet.PNG))
	require.NoError(t, err)
	_, _, b, _ := img.At(0, 7).RGBA()
	assert.NotZero(t, b)

	_, err = PackPNG(nil, 2)
	require.Error(t, err)
}

func TestDecodePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(2, 2, color.Black)))
	im, err := DecodePNG("x.png", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, im.Img.Bounds().Dx())

	_, err = DecodePNG("bad.png", []byte("nope"))
	require.Error(t, err)
}

var scssVariable = regexp.MustCompile(`(?m)^\$([A-Za-z0-9_-]+):`)

func variables(fragment string) map[string]bool {
	seen := map[string]bool{}
	for _, m := range scssVariable.FindAllStringSubmatch(fragment, -1) {
		seen[m[1]] = true
	}
	return seen
}

func TestStyleFragment_NoCrossFolderCollisions(t *testing.T) {
	frames := []Frame{{Name: "arrow.png", Width: 4, Height: 4}, {Name: "close.png", Y: 6, Width: 4, Height: 4}}
	a := string(StyleFragment("iconsA", "../images/sprites-iconsA.png", Sheet{Width: 4, Height: 10, Frames: frames}))
	b := string(StyleFragment("iconsB", "../images/sprites-iconsB.png", Sheet{Width: 4, Height: 10, Frames: frames}))

	assert.Contains(t, a, "$iconsA__arrow: (0px, 0px, 0px, 0px, 4px, 4px);")
	assert.Contains(t, a, "background-position: 0px -6px;")
	assert.Contains(t, a, ".iconsA__close {")

	seen := variables(a)
	for name := range variables(b) {
		assert.False(t, seen[name], "variable %s defined by both folders", name)
		assert.True(t, strings.HasPrefix(name, "iconsB"))
	}
}

func TestStyleFragment_HyphenatedFolderAndMemberStayDistinct(t *testing.T) {
	sheet := func(name string) Sheet {
		return Sheet{Width: 4, Height: 4, Frames: []Frame{{Name: name, Width: 4, Height: 4}}}
	}
	a := variables(string(StyleFragment("icons", "sprites-icons.png", sheet("a-x.png"))))
	b := variables(string(StyleFragment("icons-a", "sprites-icons-a.png", sheet("x.png"))))

	assert.True(t, a["icons__a-x"])
	assert.True(t, b["icons-a__x"])
	for name := range b {
		assert.False(t, a[name], "variable %s defined by both folders", name)
	}
}

func TestSymbolSprite(t *testing.T) {
	out, err := SymbolSprite("ui", []SVG{
		{Name: "check.svg", Data: []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path d="M0 0h24"/></svg>`)},
		{Name: "dot.svg", Data: []byte(`<svg width="8" height="8" stroke-width="2"><circle r="4"/></svg>`)},
	})
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `<symbol id="ui__check" viewBox="0 0 24 24"><path d="M0 0h24"/></symbol>`)
	assert.Contains(t, s, `<symbol id="ui__dot" viewBox="0 0 8 8"><circle r="4"/></symbol>`)

	_, err = SymbolSprite("ui", []SVG{{Name: "bad.svg", Data: []byte("<g/>")}})
	require.Error(t, err)
}
