// Package assets declares the step list of every asset class on top of the
// transform collaborators.
package assets

import (
	"github.com/ifamed/markup-boilerplate/internal/cache"
	"github.com/ifamed/markup-boilerplate/internal/config"
	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/retry"
	"github.com/ifamed/markup-boilerplate/internal/transform"
)

// Toolkit bundles the collaborators the pipelines delegate to.
type Toolkit struct {
	Includer *transform.Includer
	ESBuild  *transform.ESBuild
	Styles   transform.StyleCompiler
	Minifier *transform.Minifier
	Raster   *transform.RasterOptimizer
	TinyPNG  *transform.TinyPNG
	Banner   *transform.Banner

	// Root is the project root that sourcemap sources are made relative to.
	Root string

	ImageConcurrency int
	SpritePadding    int
	// SpriteStyleDir receives the generated sprite stylesheet fragments.
	SpriteStyleDir string
}

// NewToolkit builds the collaborators from the configuration.
func NewToolkit(cfg *config.Config) (*Toolkit, error) {
	esb, err := transform.NewESBuild(cfg.Targets, cfg.Scripts.Bundle)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid build targets").
			WithContext("field", "targets").Build()
	}
	includes := make([]string, 0, len(cfg.Styles.IncludePaths))
	for _, p := range cfg.Styles.IncludePaths {
		includes = append(includes, cfg.Abs(p))
	}
	results := cache.New(cache.DefaultSize)
	return &Toolkit{
		Includer:         transform.NewIncluder(),
		ESBuild:          esb,
		Styles:           transform.NewDartSass(cfg.Styles.SassBinary, includes),
		Minifier:         transform.NewMinifier(),
		Raster:           transform.NewRasterOptimizer(cfg.Images.JPEGQuality, results),
		TinyPNG:          transform.NewTinyPNG(cfg.Images.TinyPNGURL, cfg.Images.TinyPNGKey, retry.FromConfig(cfg.Retry), results),
		Banner:           transform.NewBanner(cfg.Name, cfg.Root),
		Root:             cfg.Root,
		ImageConcurrency: cfg.Images.Concurrency,
		SpritePadding:    cfg.Sprites.Padding,
		SpriteStyleDir:   cfg.Abs(cfg.Sprites.StyleDir),
	}, nil
}

// Close releases external processes.
func (t *Toolkit) Close() error {
	if t == nil || t.Styles == nil {
		return nil
	}
	return t.Styles.Close()
}
