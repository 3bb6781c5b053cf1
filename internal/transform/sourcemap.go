package transform

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

const mapDataURL = "data:application/json;charset=utf-8;base64,"

var mapComment = regexp.MustCompile(`(?m)(?:/\*#\s*sourceMappingURL=[^*]*\*/|//#\s*sourceMappingURL=\S*)\s*$`)

// InlineMapComment renders a sourcemap as an inline data URL comment.
func InlineMapComment(sourcemap []byte, css bool) []byte {
	url := mapDataURL + base64.StdEncoding.EncodeToString(sourcemap)
	if css {
		return []byte("/*# sourceMappingURL=" + url + " */\n")
	}
	return []byte("//# sourceMappingURL=" + url + "\n")
}

// AppendInlineMap returns code with any existing sourcemap comment replaced by an
// inline one carrying sourcemap.
func AppendInlineMap(code, sourcemap []byte, css bool) []byte {
	code = StripMapComment(code)
	out := make([]byte, 0, len(code)+len(sourcemap)*4/3+64)
	out = append(out, code...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return append(out, InlineMapComment(sourcemap, css)...)
}

// StripMapComment removes trailing sourceMappingURL comments.
func StripMapComment(code []byte) []byte {
	return bytes.TrimRight(mapComment.ReplaceAll(code, nil), "\n")
}

// HasMapComment reports whether code references a sourcemap.
func HasMapComment(code []byte) bool {
	return mapComment.Match(code)
}

// RelativeSources rewrites the "sources" of a sourcemap relative to root so the
// map does not depend on where the project is checked out. Relative entries are
// resolved against base first; file URLs are treated as paths. Entries outside
// root and pseudo files such as "<stdin>" are kept.
func RelativeSources(sourcemap []byte, base, root string) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(sourcemap, &doc); err != nil {
		return nil, err
	}
	raw, ok := doc["sources"]
	if !ok {
		return sourcemap, nil
	}
	var sources []string
	err := json.Unmarshal(raw, &sources)
	if err != nil {
		return nil, err
	}
	for i, src := range sources {
		sources[i] = relativeSource(src, base, root)
	}
	if doc["sources"], err = json.Marshal(sources); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func relativeSource(src, base, root string) string {
	if src == "" || strings.HasPrefix(src, "<") {
		return src
	}
	p := src
	if strings.HasPrefix(src, "file:") {
		u, err := url.Parse(src)
		if err != nil {
			return src
		}
		p = filepath.FromSlash(u.Path)
	} else if strings.Contains(src, "://") {
		return src
	}
	if !filepath.IsAbs(p) {
		if base == "" {
			return src
		}
		p = filepath.Join(base, filepath.FromSlash(p))
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return src
	}
	return filepath.ToSlash(rel)
}
