package sprite

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
)

// Image is a decoded sprite member.
type Image struct {
	Name string
	Img  image.Image
}

// Frame is the placement of one member inside a sheet.
type Frame struct {
	Name   string
	X, Y   int
	Width  int
	Height int
}

// Sheet is a packed sprite image.
type Sheet struct {
	Width  int
	Height int
	Frames []Frame
	PNG    []byte
}

// DecodePNG decodes a member image.
func DecodePNG(name string, data []byte) (Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return Image{Name: name, Img: img}, nil
}

// PackPNG stacks images top-down in the given order with padding pixels between
// them and encodes the sheet.
func PackPNG(images []Image, padding int) (Sheet, error) {
	if padding < 0 {
		padding = 0
	}
	var sheet Sheet
	y := 0
	for i, im := range images {
		b := im.Img.Bounds()
		if i > 0 {
			y += padding
		}
		sheet.Frames = append(sheet.Frames, Frame{Name: im.Name, X: 0, Y: y, Width: b.Dx(), Height: b.Dy()})
		sheet.Width = max(sheet.Width, b.Dx())
		y += b.Dy()
	}
	sheet.Height = y
	if sheet.Width == 0 || sheet.Height == 0 {
		return Sheet{}, fmt.Errorf("sprite sheet is empty")
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, sheet.Width, sheet.Height))
	for i, im := range images {
		f := sheet.Frames[i]
		draw.Draw(canvas, image.Rect(f.X, f.Y, f.X+f.Width, f.Y+f.Height), im.Img, im.Img.Bounds().Min, draw.Src)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, canvas); err != nil {
		return Sheet{}, err
	}
	sheet.PNG = buf.Bytes()
	return sheet, nil
}

// StyleFragment renders the Sass fragment for a packed sheet. Every variable and
// class is prefixed with the folder slug; member names follow Separator.
func StyleFragment(folder, sheetURL string, sheet Sheet) []byte {
	prefix := Slug(folder)
	var b strings.Builder
	fmt.Fprintf(&b, "// Generated from images/sprites/%s. Do not edit.\n", folder)
	fmt.Fprintf(&b, "$%s-sprite-url: '%s';\n", prefix, sheetURL)
	fmt.Fprintf(&b, "$%s-sprite-width: %dpx;\n", prefix, sheet.Width)
	fmt.Fprintf(&b, "$%s-sprite-height: %dpx;\n", prefix, sheet.Height)
	for _, f := range sheet.Frames {
		name := MemberName(folder, f.Name)
		fmt.Fprintf(&b, "$%s: (%dpx, %dpx, %dpx, %dpx, %dpx, %dpx);\n",
			name, f.X, f.Y, -f.X, -f.Y, f.Width, f.Height)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%%%s-sprite {\n  background-image: url($%s-sprite-url);\n  background-repeat: no-repeat;\n}\n", prefix, prefix)
	for _, f := range sheet.Frames {
		name := MemberName(folder, f.Name)
		fmt.Fprintf(&b, "\n.%s {\n  @extend %%%s-sprite;\n  background-position: %dpx %dpx;\n  width: %dpx;\n  height: %dpx;\n}\n",
			name, prefix, -f.X, -f.Y, f.Width, f.Height)
	}
	return []byte(b.String())
}
