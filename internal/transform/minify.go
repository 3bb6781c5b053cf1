package transform

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

const (
	mediaHTML = "text/html"
	mediaSVG  = "image/svg+xml"
)

// Minifier compresses markup and vector images.
type Minifier struct {
	m *minify.M
}

// NewMinifier configures the minifier. Document structure, end tags, and the SVG
// viewBox are kept so the output stays a drop-in replacement.
func NewMinifier() *Minifier {
	m := minify.New()
	m.Add(mediaHTML, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	m.Add(mediaSVG, &svg.Minifier{})
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	return &Minifier{m: m}
}

// HTML minifies a markup document.
func (m *Minifier) HTML(name string, in []byte) ([]byte, error) {
	out, err := m.m.Bytes(mediaHTML, in)
	if err != nil {
		return nil, &CompileError{File: name, Msg: err.Error()}
	}
	return out, nil
}

// SVG minifies a vector image.
func (m *Minifier) SVG(name string, in []byte) ([]byte, error) {
	out, err := m.m.Bytes(mediaSVG, in)
	if err != nil {
		return nil, &CompileError{File: name, Msg: err.Error()}
	}
	return out, nil
}
