package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ifamed/markup-boilerplate/internal/cache"
)

// RasterOptimizer recompresses PNG and JPEG images losslessly (PNG) or at a fixed
// quality (JPEG), keeping whichever of input and output is smaller.
// Other formats pass through unchanged.
type RasterOptimizer struct {
	quality int
	cache   *cache.Results
}

// NewRasterOptimizer creates an optimizer. A nil cache disables memoization.
func NewRasterOptimizer(jpegQuality int, c *cache.Results) *RasterOptimizer {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 82
	}
	return &RasterOptimizer{quality: jpegQuality, cache: c}
}

// Optimize returns the optimized image bytes.
func (o *RasterOptimizer) Optimize(name string, in []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return in, nil
	}
	key := cache.Key(in, "optimize", ext, strconv.Itoa(o.quality))
	return o.cache.GetOrCompute(key, func() ([]byte, error) {
		img, _, err := image.Decode(bytes.NewReader(in))
		if err != nil {
			return nil, &CompileError{File: name, Msg: fmt.Sprintf("decode image: %v", err)}
		}
		var buf bytes.Buffer
		if ext == ".png" {
			enc := png.Encoder{CompressionLevel: png.BestCompression}
			err = enc.Encode(&buf, img)
		} else {
			err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.quality})
		}
		if err != nil {
			return nil, &CompileError{File: name, Msg: fmt.Sprintf("encode image: %v", err)}
		}
		if buf.Len() >= len(in) {
			return in, nil
		}
		return buf.Bytes(), nil
	})
}
