package assets

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifamed/markup-boilerplate/internal/config"
	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/paths"
	"github.com/ifamed/markup-boilerplate/internal/pipeline"
)

type project struct {
	cfg   *config.Config
	specs []paths.AssetClassSpec
	tk    *Toolkit
	defs  map[paths.ClassID]pipeline.Definition
}

func newProject(t *testing.T, files map[string][]byte) *project {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, "src", filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, body, 0o600))
	}
	cfg, err := config.Default(root)
	require.NoError(t, err)
	specs, err := paths.Resolve(cfg)
	require.NoError(t, err)
	tk, err := NewToolkit(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tk.Close() })
	return &project{cfg: cfg, specs: specs, tk: tk, defs: Definitions(tk, specs)}
}

func (p *project) run(t *testing.T, mode config.Mode, class paths.ClassID) pipeline.WrittenFileSet {
	t.Helper()
	spec, ok := paths.Find(p.specs, class)
	require.True(t, ok)
	runner := pipeline.NewRunner(pipeline.Options{Mode: mode, DestRoot: p.cfg.DestRoot()})
	written, err := runner.Run(t.Context(), p.defs[class], spec, pipeline.RunOptions{})
	require.NoError(t, err)
	return written
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDefinitions_EveryClassDeclared(t *testing.T) {
	p := newProject(t, nil)
	for _, spec := range p.specs {
		def, ok := p.defs[spec.ID]
		require.True(t, ok, spec.ID)
		assert.Equal(t, spec.ID, def.Class)
		assert.NotEmpty(t, def.Steps, spec.ID)
	}
	assert.Equal(t, []string{StepSourcemapInit, StepPreprocess, StepPostProcess, StepBanner, StepSourcemapWrite}, p.defs[paths.ClassCSS].StepNames())
	assert.Equal(t, pipeline.ReloadCSS, p.defs[paths.ClassCSS].Reload)
	assert.Equal(t, pipeline.ReloadFull, p.defs[paths.ClassJS].Reload)
	assert.Equal(t, pipeline.ReloadNone, p.defs[paths.ClassFont].Reload)
}

func TestStylesheet_ModeGating(t *testing.T) {
	files := map[string][]byte{"assets/stylesheets/main.css": []byte("body {\n  color: red;\n}\n")}

	dev := newProject(t, files)
	written := dev.run(t, config.ModeDevelopment, paths.ClassCSS)
	require.Len(t, written, 1)
	assert.Equal(t, filepath.Join(dev.cfg.DestRoot(), "assets", "stylesheets", "main.css"), written[0])
	out := read(t, written[0])
	assert.Contains(t, out, "color: red;")
	assert.Contains(t, out, "sourceMappingURL=data:application/json")
	assert.NotContains(t, out, "/*! ")

	prod := newProject(t, files)
	written = prod.run(t, config.ModeProduction, paths.ClassCSS)
	require.Len(t, written, 1)
	out = read(t, written[0])
	assert.Contains(t, out, "body{color:red}")
	assert.Contains(t, out, "/*! "+prod.cfg.Name)
	assert.NotContains(t, out, "sourceMappingURL")
}

func TestScript_IncludesAndMinifies(t *testing.T) {
	files := map[string][]byte{
		"assets/javascripts/main.js":          []byte("//= include partials/util.js\nwindow.answer = util();\n"),
		"assets/javascripts/partials/util.js": []byte("function util() {\n  return 42;\n}\n"),
	}

	dev := newProject(t, files)
	written := dev.run(t, config.ModeDevelopment, paths.ClassJS)
	require.Len(t, written, 1)
	out := read(t, written[0])
	assert.Contains(t, out, "return 42;")
	assert.Contains(t, out, "sourceMappingURL=")

	prod := newProject(t, files)
	written = prod.run(t, config.ModeProduction, paths.ClassJS)
	require.Len(t, written, 1)
	out = read(t, written[0])
	assert.Contains(t, out, "42")
	assert.NotContains(t, out, "\n  return")
	assert.NotContains(t, out, "sourceMappingURL")
}

func TestHTML_ProductionMinifies(t *testing.T) {
	files := map[string][]byte{
		"index.html":           []byte("<html>\n  <body>\n    //= partials/header.html\n  </body>\n</html>\n"),
		"partials/header.html": []byte("<header>  Hello  </header>\n"),
	}
	dev := newProject(t, files)
	written := dev.run(t, config.ModeDevelopment, paths.ClassHTML)
	require.Len(t, written, 1)
	assert.Equal(t, filepath.Join(dev.cfg.DestRoot(), "index.html"), written[0])
	assert.Contains(t, read(t, written[0]), "<header>  Hello  </header>")

	prod := newProject(t, files)
	written = prod.run(t, config.ModeProduction, paths.ClassHTML)
	require.Len(t, written, 1)
	out := read(t, written[0])
	assert.Contains(t, out, "Hello")
	assert.NotContains(t, out, "  Hello  ")
}

func TestScript_SourcemapSourcesAreProjectRelative(t *testing.T) {
	p := newProject(t, map[string][]byte{"assets/javascripts/main.js": []byte("window.answer = 42;\n")})
	written := p.run(t, config.ModeDevelopment, paths.ClassJS)
	require.Len(t, written, 1)
	out := read(t, written[0])

	const marker = "sourceMappingURL=data:application/json;charset=utf-8;base64,"
	i := strings.LastIndex(out, marker)
	require.GreaterOrEqual(t, i, 0)
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out[i+len(marker):]))
	require.NoError(t, err)
	var m struct {
		Sources []string `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, []string{"src/assets/javascripts/main.js"}, m.Sources)
	assert.NotContains(t, out, p.cfg.Root)
}

func TestRasterSprites_OneSheetPerFolder(t *testing.T) {
	p := newProject(t, map[string][]byte{
		"assets/images/sprites/iconsA/a.png": pngBytes(t, 4, 4),
		"assets/images/sprites/iconsA/b.png": pngBytes(t, 6, 2),
		"assets/images/sprites/iconsB/c.png": pngBytes(t, 3, 3),
		"assets/images/sprites/loose.png":    pngBytes(t, 3, 3),
	})
	written := p.run(t, config.ModeDevelopment, paths.ClassSprite)

	imagesDir := filepath.Join(p.cfg.DestRoot(), "assets", "images")
	styleDir := p.tk.SpriteStyleDir
	assert.ElementsMatch(t, []string{
		filepath.Join(imagesDir, "sprites-iconsA.png"),
		filepath.Join(imagesDir, "sprites-iconsB.png"),
		filepath.Join(styleDir, "_sprites-iconsA.scss"),
		filepath.Join(styleDir, "_sprites-iconsB.scss"),
	}, []string(written))

	fragment := read(t, filepath.Join(styleDir, "_sprites-iconsA.scss"))
	assert.Contains(t, fragment, "../images/sprites-iconsA.png")
	assert.Contains(t, fragment, ".iconsA__a {")
	assert.NotContains(t, fragment, "iconsB")

	sheet, err := png.DecodeConfig(bytes.NewReader([]byte(read(t, filepath.Join(imagesDir, "sprites-iconsA.png")))))
	require.NoError(t, err)
	assert.Equal(t, 6, sheet.Width)
}

func TestRasterSprites_CollidingFolderSlugsFail(t *testing.T) {
	p := newProject(t, map[string][]byte{
		"assets/images/sprites/icons-a/a.png": pngBytes(t, 4, 4),
		"assets/images/sprites/icons_a/b.png": pngBytes(t, 4, 4),
	})
	spec, ok := paths.Find(p.specs, paths.ClassSprite)
	require.True(t, ok)
	runner := pipeline.NewRunner(pipeline.Options{Mode: config.ModeDevelopment, DestRoot: p.cfg.DestRoot()})

	_, err := runner.Run(t.Context(), p.defs[paths.ClassSprite], spec, pipeline.RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTransform))
	assert.Contains(t, err.Error(), "icons_a")
	assert.NoFileExists(t, filepath.Join(spec.DestDir, "sprites-icons-a.png"))
}

func TestVectorSprites_CollidingMembersFail(t *testing.T) {
	svg := []byte(`<svg viewBox="0 0 1 1"><path d="M0 0"/></svg>`)
	p := newProject(t, map[string][]byte{
		"assets/images/sprites/ui/close.svg":        svg,
		"assets/images/sprites/ui/nested/close.svg": svg,
	})
	spec, ok := paths.Find(p.specs, paths.ClassSpriteVector)
	require.True(t, ok)
	runner := pipeline.NewRunner(pipeline.Options{Mode: config.ModeDevelopment, DestRoot: p.cfg.DestRoot()})

	_, err := runner.Run(t.Context(), p.defs[paths.ClassSpriteVector], spec, pipeline.RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTransform))
}

func TestVectorSprites_SymbolSheet(t *testing.T) {
	p := newProject(t, map[string][]byte{
		"assets/images/sprites/ui/close.svg": []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><path d="M0 0L10 10"/></svg>`),
	})
	written := p.run(t, config.ModeProduction, paths.ClassSpriteVector)
	require.Len(t, written, 1)
	out := read(t, written[0])
	assert.Contains(t, out, "ui__close")
	assert.Equal(t, "sprites-ui.svg", filepath.Base(written[0]))
}

func TestRasterImages_BasicVariantSkipsTinyPNG(t *testing.T) {
	p := newProject(t, map[string][]byte{"assets/images/logo.png": pngBytes(t, 8, 8)})
	spec, ok := paths.Find(p.specs, paths.ClassImageRaster)
	require.True(t, ok)
	runner := pipeline.NewRunner(pipeline.Options{Mode: config.ModeDevelopment, DestRoot: p.cfg.DestRoot()})

	written, err := runner.Run(t.Context(), RasterImages(p.tk), spec, pipeline.RunOptions{Variant: pipeline.VariantBasic})
	require.NoError(t, err)
	require.Len(t, written, 1)
	_, err = png.Decode(bytes.NewReader([]byte(read(t, written[0]))))
	require.NoError(t, err)
}
