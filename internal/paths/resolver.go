package paths

import (
	"path/filepath"
	"strings"

	"github.com/ifamed/markup-boilerplate/internal/config"
	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
)

// ClassID identifies an asset class.
type ClassID string

const (
	ClassHTML         ClassID = "html"
	ClassJS           ClassID = "js"
	ClassCSS          ClassID = "css"
	ClassImageRaster  ClassID = "image-raster"
	ClassImageVector  ClassID = "image-vector"
	ClassSprite       ClassID = "sprite"
	ClassSpriteVector ClassID = "sprite-vector"
	ClassFont         ClassID = "font"
)

// AssetClassSpec is the resolved layout of one asset class. DestDir is absolute and
// always inside the destination root.
type AssetClassSpec struct {
	ID                 ClassID
	Task               string
	Source             Glob
	Watch              Glob
	DestDir            string
	CleanBeforeRebuild bool
}

type classDefault struct {
	id      ClassID
	task    string
	source  string
	watch   string
	exclude []string
	dest    string
	clean   bool
}

const spritesExclude = "assets/images/sprites/**"

// defaults in resolution order.
var defaults = []classDefault{
	{ClassHTML, "html", "*.html", "**/*.{html,md}", nil, "", true},
	{ClassJS, "js", "assets/javascripts/main.js", "assets/javascripts/**/*.js", nil, "assets/javascripts", true},
	{ClassCSS, "styles", "assets/stylesheets/main.{sass,scss,css}", "assets/stylesheets/**/*.{sass,scss,css}", nil, "assets/stylesheets", false},
	{ClassImageRaster, "images:raster", "assets/images/**/*.{png,jpg,jpeg,gif}", "", []string{spritesExclude}, "assets/images", true},
	{ClassImageVector, "images:svg", "assets/images/**/*.svg", "", []string{spritesExclude}, "assets/images", true},
	{ClassSprite, "sprites-png", "assets/images/sprites/*/*.png", "", nil, "assets/images", true},
	{ClassSpriteVector, "sprites-svg", "assets/images/sprites/*/*.svg", "", nil, "assets/images", true},
	{ClassFont, "fonts", "assets/fonts/**/*", "", nil, "assets/fonts", true},
}

// Resolve derives every AssetClassSpec from cfg in a fixed order. It performs no I/O.
func Resolve(cfg *config.Config) ([]AssetClassSpec, error) {
	if cfg == nil {
		return nil, errors.ConfigError("configuration is nil").Build()
	}
	if strings.TrimSpace(cfg.Source) == "" || strings.TrimSpace(cfg.Dest) == "" {
		return nil, errors.ConfigError("source and destination directories must be set").Build()
	}
	srcRoot := cfg.SourceRoot()
	destRoot := cfg.DestRoot()
	if srcRoot == destRoot {
		return nil, errors.ConfigError("source and destination directories are the same").
			WithContext("source", cfg.Source).Build()
	}

	specs := make([]AssetClassSpec, 0, len(defaults))
	for _, d := range defaults {
		override := cfg.Assets[string(d.id)]

		source := Glob{Root: srcRoot, Pattern: pick(override.Source, d.source), Exclude: d.exclude}
		if len(override.Exclude) > 0 {
			source.Exclude = override.Exclude
		}
		watch := Glob{Root: srcRoot, Pattern: pick(override.Watch, d.watch, source.Pattern), Exclude: source.Exclude}
		if !source.Valid() || !watch.Valid() {
			return nil, errors.ConfigError("invalid glob pattern").
				WithContext("class", string(d.id)).
				WithContext("pattern", source.Pattern).Build()
		}

		destDir := filepath.Join(destRoot, filepath.FromSlash(pick(override.Dest, d.dest)))
		if !insideOrEqual(destRoot, destDir) {
			return nil, errors.ConfigError("asset destination escapes the destination root").
				WithContext("class", string(d.id)).
				WithContext("dest", destDir).Build()
		}

		clean := d.clean
		if override.CleanBeforeRebuild != nil {
			clean = *override.CleanBeforeRebuild
		}
		specs = append(specs, AssetClassSpec{
			ID:                 d.id,
			Task:               d.task,
			Source:             source,
			Watch:              watch,
			DestDir:            destDir,
			CleanBeforeRebuild: clean,
		})
	}
	return specs, nil
}

// Find returns the spec with the given id.
func Find(specs []AssetClassSpec, id ClassID) (AssetClassSpec, bool) {
	for _, s := range specs {
		if s.ID == id {
			return s, true
		}
	}
	return AssetClassSpec{}, false
}

func pick(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func insideOrEqual(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
