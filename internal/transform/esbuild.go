package transform

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Input is a source handed to a compiler.
type Input struct {
	// Name is the absolute path of the source, used in sourcemaps and errors.
	Name     string
	Contents []byte
	// Map is an optional sourcemap describing Contents.
	Map []byte
}

// Output is a compiled result. Map is empty when no sourcemap was requested.
type Output struct {
	Code []byte
	Map  []byte
}

// CompileError is a diagnostic produced by a compiler.
type CompileError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *CompileError) Error() string {
	if e.File == "" {
		return e.Msg
	}
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Msg)
}

// ESBuild compiles scripts and post-processes stylesheets for a set of browser targets.
type ESBuild struct {
	engines []api.Engine
	bundle  bool
}

// NewESBuild parses targets such as "chrome58" or "safari11".
// When bundle is set, script imports are resolved and inlined.
func NewESBuild(targets []string, bundle bool) (*ESBuild, error) {
	engines, err := ParseEngines(targets)
	if err != nil {
		return nil, err
	}
	return &ESBuild{engines: engines, bundle: bundle}, nil
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

var targetPattern = regexp.MustCompile(`^([a-z]+)(\d+(?:\.\d+)*)$`)

// ParseEngines converts target strings into esbuild engines.
func ParseEngines(targets []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(targets))
	for _, t := range targets {
		m := targetPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(t)))
		if m == nil {
			return nil, fmt.Errorf("invalid target %q", t)
		}
		name, ok := engineNames[m[1]]
		if !ok {
			return nil, fmt.Errorf("unknown target engine %q", m[1])
		}
		engines = append(engines, api.Engine{Name: name, Version: m[2]})
	}
	return engines, nil
}

// Script compiles a script. Minify enables whitespace, identifier, and syntax
// minification; sourcemap requests an external map composed with in.Map.
func (e *ESBuild) Script(in Input, minify, sourcemap bool) (Output, error) {
	if e.bundle {
		return e.bundleScript(in, minify, sourcemap)
	}
	return e.transform(in, api.LoaderJS, minify, sourcemap)
}

// Stylesheet lowers and prefixes CSS for the configured targets.
func (e *ESBuild) Stylesheet(in Input, minify, sourcemap bool) (Output, error) {
	return e.transform(in, api.LoaderCSS, minify, sourcemap)
}

func (e *ESBuild) transform(in Input, loader api.Loader, minify, sourcemap bool) (Output, error) {
	code := in.Contents
	if sourcemap && len(in.Map) > 0 {
		code = AppendInlineMap(code, in.Map, loader == api.LoaderCSS)
	} else {
		code = StripMapComment(code)
	}
	opts := api.TransformOptions{
		Loader:            loader,
		Sourcefile:        in.Name,
		Engines:           e.engines,
		MinifyWhitespace:  minify,
		MinifyIdentifiers: minify,
		MinifySyntax:      minify,
		LegalComments:     api.LegalCommentsInline,
		Sourcemap:         api.SourceMapNone,
	}
	if sourcemap {
		opts.Sourcemap = api.SourceMapExternal
		opts.SourcesContent = api.SourcesContentInclude
	}
	res := api.Transform(string(code), opts)
	if len(res.Errors) > 0 {
		return Output{}, compileError(in.Name, res.Errors[0])
	}
	out := Output{Code: res.Code}
	if sourcemap {
		out.Map = res.Map
	}
	return out, nil
}

func (e *ESBuild) bundleScript(in Input, minify, sourcemap bool) (Output, error) {
	opts := api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   string(StripMapComment(in.Contents)),
			ResolveDir: filepath.Dir(in.Name),
			Sourcefile: in.Name,
			Loader:     api.LoaderJS,
		},
		Bundle:            true,
		Write:             false,
		Outfile:           filepath.Join(filepath.Dir(in.Name), "bundle.js"),
		Engines:           e.engines,
		MinifyWhitespace:  minify,
		MinifyIdentifiers: minify,
		MinifySyntax:      minify,
		LegalComments:     api.LegalCommentsInline,
		LogLevel:          api.LogLevelSilent,
	}
	if filepath.IsAbs(in.Name) {
		// Map sources come out relative to the source directory, not the process.
		opts.AbsWorkingDir = filepath.Dir(in.Name)
	}
	if sourcemap {
		opts.Sourcemap = api.SourceMapExternal
		opts.SourcesContent = api.SourcesContentInclude
	}
	res := api.Build(opts)
	if len(res.Errors) > 0 {
		return Output{}, compileError(in.Name, res.Errors[0])
	}
	var out Output
	for _, f := range res.OutputFiles {
		if strings.HasSuffix(f.Path, ".map") {
			out.Map = f.Contents
			continue
		}
		out.Code = StripMapComment(f.Contents)
	}
	return out, nil
}

func compileError(name string, msg api.Message) error {
	ce := &CompileError{File: name, Msg: msg.Text}
	if msg.Location != nil {
		if msg.Location.File != "" && msg.Location.File != "<stdin>" {
			ce.File = msg.Location.File
		}
		ce.Line = msg.Location.Line
		ce.Column = msg.Location.Column
	}
	return ce
}
