package assets

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ifamed/markup-boilerplate/internal/config"
	"github.com/ifamed/markup-boilerplate/internal/paths"
	"github.com/ifamed/markup-boilerplate/internal/pipeline"
	"github.com/ifamed/markup-boilerplate/internal/sprite"
	"github.com/ifamed/markup-boilerplate/internal/transform"
)

// Step names shared by several classes.
const (
	StepInclude            = "include"
	StepSourcemapInit      = "sourcemap-init"
	StepSourcemapWrite     = "sourcemap-write"
	StepTransform          = "transform"
	StepPreprocess         = "preprocess"
	StepPostProcess        = "post-process"
	StepBanner             = "banner"
	StepMinifyHTML         = "minify-html"
	StepMinifySVG          = "minify-svg"
	StepOptimize           = "optimize"
	StepTinyPNG            = "tinypng"
	StepGroupByFolder      = "group-by-folder"
	StepPack               = "pack"
	StepStylesheetFragment = "stylesheet-fragment"
	StepSymbolSprite       = "symbol-sprite"
	StepCopy               = "copy"
)

// Definitions returns the pipeline definition of every resolved class.
func Definitions(tk *Toolkit, specs []paths.AssetClassSpec) map[paths.ClassID]pipeline.Definition {
	defs := make(map[paths.ClassID]pipeline.Definition, len(specs))
	cssDest := ""
	if css, ok := paths.Find(specs, paths.ClassCSS); ok {
		cssDest = css.DestDir
	}
	for _, spec := range specs {
		switch spec.ID {
		case paths.ClassHTML:
			defs[spec.ID] = HTML(tk)
		case paths.ClassJS:
			defs[spec.ID] = Script(tk)
		case paths.ClassCSS:
			defs[spec.ID] = Stylesheet(tk)
		case paths.ClassImageRaster:
			defs[spec.ID] = RasterImages(tk)
		case paths.ClassImageVector:
			defs[spec.ID] = VectorImages(tk)
		case paths.ClassSprite:
			defs[spec.ID] = RasterSprites(tk, cssDest, spec.DestDir)
		case paths.ClassSpriteVector:
			defs[spec.ID] = VectorSprites(tk)
		case paths.ClassFont:
			defs[spec.ID] = Fonts()
		}
	}
	return defs
}

// HTML: include -> minify-html (production).
func HTML(tk *Toolkit) pipeline.Definition {
	return pipeline.New(paths.ClassHTML).
		Add(StepInclude, include(tk)).
		AddIn(config.ModeProduction, StepMinifyHTML, pipeline.Each(func(_ context.Context, _ *pipeline.Run, a *pipeline.Asset) error {
			out, err := tk.Minifier.HTML(a.Label(), a.Contents)
			if err != nil {
				return err
			}
			a.Contents = out
			return nil
		})).
		Build()
}

// Script: include -> sourcemap-init (development) -> transform -> banner (production)
// -> sourcemap-write (development).
func Script(tk *Toolkit) pipeline.Definition {
	return pipeline.New(paths.ClassJS).
		Add(StepInclude, include(tk)).
		AddIn(config.ModeDevelopment, StepSourcemapInit, sourcemapInit).
		Add(StepTransform, pipeline.Each(func(_ context.Context, run *pipeline.Run, a *pipeline.Asset) error {
			out, err := tk.ESBuild.Script(input(a), run.Mode.IsProduction(), a.TrackMap)
			if err != nil {
				return err
			}
			a.Contents, a.Map = out.Code, out.Map
			return nil
		})).
		AddIn(config.ModeProduction, StepBanner, banner(tk)).
		AddIn(config.ModeDevelopment, StepSourcemapWrite, sourcemapWrite(tk, false)).
		Build()
}

// Stylesheet: sourcemap-init (development) -> preprocess -> post-process -> banner
// (production) -> sourcemap-write (development). Clients swap stylesheets in place.
func Stylesheet(tk *Toolkit) pipeline.Definition {
	return pipeline.New(paths.ClassCSS).
		AddIn(config.ModeDevelopment, StepSourcemapInit, sourcemapInit).
		Add(StepPreprocess, pipeline.Each(func(ctx context.Context, _ *pipeline.Run, a *pipeline.Asset) error {
			out, err := tk.Styles.Compile(ctx, input(a), a.TrackMap)
			if err != nil {
				return err
			}
			a.Contents, a.Map = out.Code, out.Map
			a.WithExt(".css")
			return nil
		})).
		Add(StepPostProcess, pipeline.Each(func(_ context.Context, run *pipeline.Run, a *pipeline.Asset) error {
			out, err := tk.ESBuild.Stylesheet(input(a), run.Mode.IsProduction(), a.TrackMap)
			if err != nil {
				return err
			}
			a.Contents, a.Map = out.Code, out.Map
			return nil
		})).
		AddIn(config.ModeProduction, StepBanner, banner(tk)).
		AddIn(config.ModeDevelopment, StepSourcemapWrite, sourcemapWrite(tk, true)).
		ReloadWith(pipeline.ReloadCSS).
		Build()
}

// RasterImages: optimize -> tinypng. Optimization runs in production or when a
// variant is requested explicitly; TinyPNG runs for images:tinypng, or in a
// production default run when a key is configured. images:basic never calls it.
func RasterImages(tk *Toolkit) pipeline.Definition {
	optimize := func(run *pipeline.Run) bool {
		return run.Mode.IsProduction() || run.Variant != pipeline.VariantDefault
	}
	tiny := func(run *pipeline.Run) bool {
		switch run.Variant {
		case pipeline.VariantTinyPNG:
			return true
		case pipeline.VariantDefault:
			return run.Mode.IsProduction() && tk.TinyPNG.Enabled()
		default:
			return false
		}
	}
	return pipeline.New(paths.ClassImageRaster).
		AddWhen(optimize, StepOptimize, pipeline.EachParallel(tk.ImageConcurrency, func(_ context.Context, _ *pipeline.Run, a *pipeline.Asset) error {
			out, err := tk.Raster.Optimize(a.Path, a.Contents)
			if err != nil {
				return err
			}
			a.Contents = out
			return nil
		})).
		AddWhen(tiny, StepTinyPNG, pipeline.EachParallel(tk.ImageConcurrency, func(ctx context.Context, _ *pipeline.Run, a *pipeline.Asset) error {
			if a.Ext() == ".gif" {
				return nil
			}
			out, err := tk.TinyPNG.Compress(ctx, a.Path, a.Contents)
			if err != nil {
				return err
			}
			a.Contents = out
			return nil
		})).
		Build()
}

// VectorImages: minify-svg (production).
func VectorImages(tk *Toolkit) pipeline.Definition {
	return pipeline.New(paths.ClassImageVector).
		AddIn(config.ModeProduction, StepMinifySVG, minifySVG(tk)).
		Build()
}

// RasterSprites: group-by-folder -> pack -> stylesheet-fragment. Sheets land in
// the sprite destination; fragments go to the sprite style directory so the
// stylesheet pipeline can import them.
func RasterSprites(tk *Toolkit, cssDest, spriteDest string) pipeline.Definition {
	sheetBase := "../images"
	if cssDest != "" {
		if rel, err := filepath.Rel(cssDest, spriteDest); err == nil {
			sheetBase = filepath.ToSlash(rel)
		}
	}
	var packed sync.Map // run id -> []packedSheet

	pack := func(_ context.Context, run *pipeline.Run, assets []*pipeline.Asset) ([]*pipeline.Asset, error) {
		groups, folders, err := uniqueGroups(assets)
		if err != nil {
			return nil, err
		}
		var sheets []packedSheet
		out := make([]*pipeline.Asset, 0, len(folders))
		for _, folder := range folders {
			members := groups[folder]
			images := make([]sprite.Image, 0, len(members))
			for _, a := range members {
				im, err := sprite.DecodePNG(path.Base(a.Path), a.Contents)
				if err != nil {
					return nil, &pipeline.FileError{File: a.Label(), Err: err}
				}
				images = append(images, im)
			}
			sheet, err := sprite.PackPNG(images, tk.SpritePadding)
			if err != nil {
				return nil, &pipeline.FileError{File: folder, Err: err}
			}
			name := sprite.SheetName(folder, ".png")
			sheets = append(sheets, packedSheet{folder: folder, name: name, sheet: sheet})
			out = append(out, &pipeline.Asset{Path: name, Contents: sheet.PNG})
		}
		packed.Store(run.ID, sheets)
		return out, nil
	}

	fragments := func(_ context.Context, run *pipeline.Run, assets []*pipeline.Asset) ([]*pipeline.Asset, error) {
		v, ok := packed.LoadAndDelete(run.ID)
		if !ok {
			return assets, nil
		}
		for _, ps := range v.([]packedSheet) {
			url := path.Join(sheetBase, ps.name)
			assets = append(assets, &pipeline.Asset{
				Target:   filepath.Join(tk.SpriteStyleDir, sprite.FragmentName(ps.folder)),
				Contents: sprite.StyleFragment(ps.folder, url, ps.sheet),
			})
		}
		return assets, nil
	}

	return pipeline.New(paths.ClassSprite).
		Add(StepGroupByFolder, groupByFolder).
		Add(StepPack, pack).
		Add(StepStylesheetFragment, fragments).
		Build()
}

type packedSheet struct {
	folder string
	name   string
	sheet  sprite.Sheet
}

// VectorSprites: group-by-folder -> symbol-sprite -> minify-svg (production).
func VectorSprites(tk *Toolkit) pipeline.Definition {
	symbols := func(_ context.Context, _ *pipeline.Run, assets []*pipeline.Asset) ([]*pipeline.Asset, error) {
		groups, folders, err := uniqueGroups(assets)
		if err != nil {
			return nil, err
		}
		out := make([]*pipeline.Asset, 0, len(folders))
		for _, folder := range folders {
			members := make([]sprite.SVG, 0, len(groups[folder]))
			for _, a := range groups[folder] {
				members = append(members, sprite.SVG{Name: path.Base(a.Path), Data: a.Contents})
			}
			doc, err := sprite.SymbolSprite(folder, members)
			if err != nil {
				return nil, &pipeline.FileError{File: folder, Err: err}
			}
			out = append(out, &pipeline.Asset{Path: sprite.SheetName(folder, ".svg"), Contents: doc})
		}
		return out, nil
	}
	return pipeline.New(paths.ClassSpriteVector).
		Add(StepGroupByFolder, groupByFolder).
		Add(StepSymbolSprite, symbols).
		AddIn(config.ModeProduction, StepMinifySVG, minifySVG(tk)).
		Build()
}

// Fonts are copied verbatim and never trigger a reload.
func Fonts() pipeline.Definition {
	return pipeline.New(paths.ClassFont).
		Add(StepCopy, func(_ context.Context, _ *pipeline.Run, assets []*pipeline.Asset) ([]*pipeline.Asset, error) {
			return assets, nil
		}).
		ReloadWith(pipeline.ReloadNone).
		Build()
}

func include(tk *Toolkit) pipeline.StepFunc {
	return pipeline.Each(func(_ context.Context, _ *pipeline.Run, a *pipeline.Asset) error {
		out, err := tk.Includer.Expand(a.Source, a.Contents)
		if err != nil {
			return err
		}
		a.Contents = out
		return nil
	})
}

func sourcemapInit(_ context.Context, _ *pipeline.Run, assets []*pipeline.Asset) ([]*pipeline.Asset, error) {
	for _, a := range assets {
		a.TrackMap = true
		a.Map = nil
	}
	return assets, nil
}

func sourcemapWrite(tk *Toolkit, css bool) pipeline.StepFunc {
	return func(_ context.Context, _ *pipeline.Run, assets []*pipeline.Asset) ([]*pipeline.Asset, error) {
		for _, a := range assets {
			if a.TrackMap && len(a.Map) > 0 {
				m, err := transform.RelativeSources(a.Map, filepath.Dir(a.Source), tk.Root)
				if err != nil {
					return nil, &pipeline.FileError{File: a.Label(), Err: err}
				}
				a.Contents = transform.AppendInlineMap(a.Contents, m, css)
			}
			a.Map = nil
			a.TrackMap = false
		}
		return assets, nil
	}
}

func banner(tk *Toolkit) pipeline.StepFunc {
	return func(_ context.Context, _ *pipeline.Run, assets []*pipeline.Asset) ([]*pipeline.Asset, error) {
		for _, a := range assets {
			a.Contents = tk.Banner.Prepend(a.Contents)
		}
		return assets, nil
	}
}

func minifySVG(tk *Toolkit) pipeline.StepFunc {
	return pipeline.Each(func(_ context.Context, _ *pipeline.Run, a *pipeline.Asset) error {
		out, err := tk.Minifier.SVG(a.Label(), a.Contents)
		if err != nil {
			return err
		}
		a.Contents = out
		return nil
	})
}

// groupByFolder drops members placed directly in the sprites root; they belong
// to no sheet.
var groupByFolder = pipeline.Filter(func(a *pipeline.Asset) bool {
	return strings.Contains(a.Path, "/")
})

func groupAssets(assets []*pipeline.Asset) (map[string][]*pipeline.Asset, []string) {
	byPath := make(map[string]*pipeline.Asset, len(assets))
	files := make([]string, 0, len(assets))
	for _, a := range assets {
		byPath[a.Path] = a
		files = append(files, a.Path)
	}
	groups, folders := sprite.Group(files)
	out := make(map[string][]*pipeline.Asset, len(groups))
	for folder, members := range groups {
		for _, m := range members {
			out[folder] = append(out[folder], byPath[m])
		}
	}
	return out, folders
}

// uniqueGroups groups assets by folder and rejects folders, or members within a
// folder, whose slugs collide.
func uniqueGroups(assets []*pipeline.Asset) (map[string][]*pipeline.Asset, []string, error) {
	groups, folders := groupAssets(assets)
	if err := sprite.CheckUnique(folders, sprite.Slug); err != nil {
		return nil, nil, &pipeline.FileError{File: "sprites", Err: err}
	}
	for _, folder := range folders {
		names := make([]string, 0, len(groups[folder]))
		for _, a := range groups[folder] {
			names = append(names, a.Path)
		}
		if err := sprite.CheckUnique(names, memberSlug); err != nil {
			return nil, nil, &pipeline.FileError{File: folder, Err: err}
		}
	}
	return groups, folders, nil
}

func memberSlug(p string) string { return sprite.FileSlug(path.Base(p)) }

func input(a *pipeline.Asset) transform.Input {
	name := a.Source
	if name == "" {
		name = a.Path
	}
	return transform.Input{Name: name, Contents: a.Contents, Map: a.Map}
}
