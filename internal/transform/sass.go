package transform

import (
	"context"
	stderrors "errors"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"
)

// StyleCompiler turns a preprocessor source into CSS.
type StyleCompiler interface {
	Compile(ctx context.Context, in Input, sourcemap bool) (Output, error)
	Close() error
}

// DartSass compiles Sass and SCSS through the embedded Dart Sass protocol. The
// compiler process is started on first use; plain CSS never starts it.
type DartSass struct {
	binary       string
	includePaths []string

	mu         sync.Mutex
	transpiler *godartsass.Transpiler
}

// NewDartSass creates a compiler. An empty binary uses "sass" from PATH.
func NewDartSass(binary string, includePaths []string) *DartSass {
	return &DartSass{binary: binary, includePaths: includePaths}
}

// Compile implements StyleCompiler. Sources ending in .css are returned unchanged.
func (d *DartSass) Compile(ctx context.Context, in Input, sourcemap bool) (Output, error) {
	var syntax godartsass.SourceSyntax
	switch strings.ToLower(filepath.Ext(in.Name)) {
	case ".css":
		return Output{Code: in.Contents, Map: in.Map}, nil
	case ".sass":
		syntax = godartsass.SourceSyntaxSASS
	default:
		syntax = godartsass.SourceSyntaxSCSS
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	t, err := d.start()
	if err != nil {
		return Output{}, err
	}

	includes := append([]string{filepath.Dir(in.Name)}, d.includePaths...)
	res, err := t.Execute(godartsass.Args{
		Source:                  string(in.Contents),
		URL:                     (&url.URL{Scheme: "file", Path: filepath.ToSlash(in.Name)}).String(),
		SourceSyntax:            syntax,
		OutputStyle:             godartsass.OutputStyleExpanded,
		IncludePaths:            includes,
		EnableSourceMap:         sourcemap,
		SourceMapIncludeSources: sourcemap,
	})
	if err != nil {
		return Output{}, &CompileError{File: in.Name, Msg: err.Error()}
	}
	out := Output{Code: []byte(res.CSS)}
	if sourcemap {
		out.Map = []byte(res.SourceMap)
	}
	return out, nil
}

func (d *DartSass) start() (*godartsass.Transpiler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transpiler != nil && !d.transpiler.IsShutDown() {
		return d.transpiler, nil
	}
	t, err := godartsass.Start(godartsass.Options{DartSassEmbeddedFilename: d.binary})
	if err != nil {
		return nil, stderrors.Join(stderrors.New("start dart sass"), err)
	}
	d.transpiler = t
	return t, nil
}

// Close stops the compiler process if it was started.
func (d *DartSass) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transpiler == nil {
		return nil
	}
	err := d.transpiler.Close()
	d.transpiler = nil
	if stderrors.Is(err, godartsass.ErrShutdown) {
		return nil
	}
	return err
}
