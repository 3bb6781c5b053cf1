package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifamed/markup-boilerplate/internal/config"
	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{Root: t.TempDir()}
	require.NoError(t, config.ApplyDefaults(cfg))
	return cfg
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestResolve_OrderAndLayout(t *testing.T) {
	cfg := testConfig(t)
	specs, err := Resolve(cfg)
	require.NoError(t, err)

	ids := make([]ClassID, 0, len(specs))
	for _, s := range specs {
		ids = append(ids, s.ID)
		assert.True(t, insideOrEqual(cfg.DestRoot(), s.DestDir), s.ID)
	}
	assert.Equal(t, []ClassID{
		ClassHTML, ClassJS, ClassCSS, ClassImageRaster, ClassImageVector, ClassSprite, ClassSpriteVector, ClassFont,
	}, ids)

	js, ok := Find(specs, ClassJS)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(cfg.Root, "build", "assets", "javascripts"), js.DestDir)
	assert.Equal(t, "js", js.Task)

	html, _ := Find(specs, ClassHTML)
	assert.Equal(t, filepath.Join(cfg.Root, "build"), html.DestDir)
}

func TestResolve_Deterministic(t *testing.T) {
	cfg := testConfig(t)
	a, err := Resolve(cfg)
	require.NoError(t, err)
	b, err := Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolve_CleanBeforeRebuildDefaultsAndOverride(t *testing.T) {
	cfg := testConfig(t)
	specs, err := Resolve(cfg)
	require.NoError(t, err)
	for _, s := range specs {
		assert.Equal(t, s.ID != ClassCSS, s.CleanBeforeRebuild, s.ID)
	}

	yes := true
	cfg.Assets = map[string]config.AssetOverride{"css": {CleanBeforeRebuild: &yes}}
	specs, err = Resolve(cfg)
	require.NoError(t, err)
	css, _ := Find(specs, ClassCSS)
	assert.True(t, css.CleanBeforeRebuild)
}

func TestResolve_ConfigErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dest = cfg.Source
	_, err := Resolve(cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	cfg = testConfig(t)
	cfg.Source = ""
	_, err = Resolve(cfg)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Assets = map[string]config.AssetOverride{"font": {Dest: "../../etc"}}
	_, err = Resolve(cfg)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Assets = map[string]config.AssetOverride{"js": {Source: "assets/[js"}}
	_, err = Resolve(cfg)
	require.Error(t, err)
}

func TestGlob_MatchAndExpand(t *testing.T) {
	cfg := testConfig(t)
	specs, err := Resolve(cfg)
	require.NoError(t, err)
	src := cfg.SourceRoot()

	touch(t, filepath.Join(src, "assets", "images", "logo.png"))
	touch(t, filepath.Join(src, "assets", "images", "icons", "arrow.jpg"))
	touch(t, filepath.Join(src, "assets", "images", "sprites", "iconsA", "a.png"))
	touch(t, filepath.Join(src, "assets", "images", "vector.svg"))

	raster, _ := Find(specs, ClassImageRaster)
	files, err := raster.Source.Expand()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(src, "assets", "images", "icons", "arrow.jpg"),
		filepath.Join(src, "assets", "images", "logo.png"),
	}, files)

	assert.False(t, raster.Watch.Match(filepath.Join(src, "assets", "images", "sprites", "iconsA", "a.png")))
	assert.True(t, raster.Watch.Match(filepath.Join(src, "assets", "images", "logo.png")))

	sprite, _ := Find(specs, ClassSprite)
	files, err = sprite.Source.Expand()
	require.NoError(t, err)
	assert.Len(t, files, 1)

	rel, ok := raster.Source.RelToBase(filepath.Join(src, "assets", "images", "icons", "arrow.jpg"))
	require.True(t, ok)
	assert.Equal(t, "icons/arrow.jpg", rel)
}

func TestGlob_ExpandMissingRoot(t *testing.T) {
	g := Glob{Root: filepath.Join(t.TempDir(), "nope"), Pattern: "**/*"}
	files, err := g.Expand()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGlob_StylesheetWatch(t *testing.T) {
	cfg := testConfig(t)
	specs, err := Resolve(cfg)
	require.NoError(t, err)
	css, _ := Find(specs, ClassCSS)
	src := cfg.SourceRoot()

	assert.True(t, css.Watch.Match(filepath.Join(src, "assets", "stylesheets", "partials", "_grid.scss")))
	assert.True(t, css.Source.Match(filepath.Join(src, "assets", "stylesheets", "main.sass")))
	assert.False(t, css.Source.Match(filepath.Join(src, "assets", "stylesheets", "partials", "_grid.scss")))
	assert.False(t, css.Watch.Match(filepath.Join(cfg.Root, "outside.scss")))
}
