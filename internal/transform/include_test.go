package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIncluder_ExpandsNestedDirectives(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "template", "header.html"), "<header>\n//= nav.html\n</header>\n")
	write(t, filepath.Join(dir, "template", "nav.html"), "<nav></nav>\n")
	index := write(t, filepath.Join(dir, "index.html"), "<body>\n  //= template/header.html\n</body>")

	data, err := os.ReadFile(index)
	require.NoError(t, err)
	out, err := NewIncluder().Expand(index, data)
	require.NoError(t, err)
	assert.Equal(t, "<body>\n  <header>\n  <nav></nav>\n  </header>\n</body>", string(out))
}

func TestIncluder_MarkdownPartial(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "intro.md"), "# Hello\n")
	index := write(t, filepath.Join(dir, "index.html"), "//= intro.md\n")

	out, err := NewIncluder().Expand(index, []byte("//= intro.md\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1>Hello</h1>")
}

func TestIncluder_Cycle(t *testing.T) {
	dir := t.TempDir()
	a := write(t, filepath.Join(dir, "a.js"), "//= b.js\n")
	write(t, filepath.Join(dir, "b.js"), "//= a.js\n")

	_, err := NewIncluder().Expand(a, []byte("//= b.js\n"))
	require.Error(t, err)
	var ie *IncludeError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Msg, "include cycle")
}

func TestIncluder_MissingFile(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.js")
	_, err := NewIncluder().Expand(main, []byte("var a = 1;\n//= vendor/missing.js\n"))
	require.Error(t, err)
	var ie *IncludeError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 2, ie.Line)
}

func TestIncluder_NoDirectivesUnchanged(t *testing.T) {
	in := []byte("var a = 1; // not a directive\n")
	out, err := NewIncluder().Expand("main.js", in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
