package transform

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// includeDirective matches `//= path` on a line of its own, optionally indented.
// The same form works in scripts and in markup (inside or outside comments).
var includeDirective = regexp.MustCompile(`^(\s*)//=\s*(?:include\s+)?(\S+)\s*$`)

// Includer expands include directives recursively. Markdown partials are rendered
// to HTML before being inlined.
type Includer struct {
	md goldmark.Markdown
}

// NewIncluder creates an include engine.
func NewIncluder() *Includer {
	return &Includer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// IncludeError reports a directive that could not be resolved.
type IncludeError struct {
	File string
	Line int
	Msg  string
}

func (e *IncludeError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// Expand returns contents with every include directive replaced by the referenced
// file, resolved relative to the including file.
func (i *Includer) Expand(file string, contents []byte) ([]byte, error) {
	return i.expand(file, contents, []string{filepath.Clean(file)})
}

func (i *Includer) expand(file string, contents []byte, stack []string) ([]byte, error) {
	if !bytes.Contains(contents, []byte("//=")) {
		return contents, nil
	}
	var out bytes.Buffer
	out.Grow(len(contents))
	sc := bufio.NewScanner(bytes.NewReader(contents))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		m := includeDirective.FindStringSubmatch(text)
		if m == nil {
			out.WriteString(text)
			out.WriteByte('\n')
			continue
		}
		target := filepath.Join(filepath.Dir(file), filepath.FromSlash(m[2]))
		if slices.Contains(stack, target) {
			return nil, &IncludeError{File: file, Line: line, Msg: "include cycle: " + strings.Join(append(stack, target), " -> ")}
		}
		// #nosec G304 -- include targets are project files
		data, err := os.ReadFile(target)
		if err != nil {
			return nil, &IncludeError{File: file, Line: line, Msg: fmt.Sprintf("cannot include %s: %v", m[2], err)}
		}
		if strings.EqualFold(filepath.Ext(target), ".md") {
			var html bytes.Buffer
			if err := i.md.Convert(data, &html); err != nil {
				return nil, &IncludeError{File: target, Line: 1, Msg: err.Error()}
			}
			data = html.Bytes()
		}
		expanded, err := i.expand(target, data, append(slices.Clone(stack), target))
		if err != nil {
			return nil, err
		}
		out.Write(indent(expanded, m[1]))
		if len(expanded) > 0 && expanded[len(expanded)-1] != '\n' {
			out.WriteByte('\n')
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(contents) > 0 && contents[len(contents)-1] != '\n' {
		out.Truncate(out.Len() - 1)
	}
	return out.Bytes(), nil
}

// indent prefixes every non-empty line of data with prefix.
func indent(data []byte, prefix string) []byte {
	if prefix == "" {
		return data
	}
	lines := bytes.SplitAfter(data, []byte("\n"))
	var out bytes.Buffer
	for _, l := range lines {
		if len(bytes.TrimSpace(l)) > 0 {
			out.WriteString(prefix)
		}
		out.Write(l)
	}
	return out.Bytes()
}
