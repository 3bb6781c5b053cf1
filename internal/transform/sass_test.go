package transform

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDartSass_PlainCSSPassesThrough(t *testing.T) {
	d := NewDartSass("", nil)
	in := Input{Name: "/src/main.css", Contents: []byte("a { color: red; }"), Map: []byte("{}")}
	out, err := d.Compile(t.Context(), in, true)
	require.NoError(t, err)
	assert.Equal(t, in.Contents, out.Code)
	assert.Equal(t, in.Map, out.Map)
	require.NoError(t, d.Close())
}

func TestDartSass_CloseWithoutStart(t *testing.T) {
	d := NewDartSass("", nil)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}

func TestDartSass_RestartsAfterClose(t *testing.T) {
	binary, err := exec.LookPath("sass")
	if err != nil {
		t.Skip("dart sass not installed")
	}
	d := NewDartSass(binary, nil)
	t.Cleanup(func() { _ = d.Close() })

	in := Input{Name: filepath.Join(t.TempDir(), "main.scss"), Contents: []byte("$c: red;\na { color: $c; }")}
	first, err := d.Compile(t.Context(), in, false)
	require.NoError(t, err)
	assert.Contains(t, string(first.Code), "color: red")

	require.NoError(t, d.Close())

	second, err := d.Compile(t.Context(), in, false)
	require.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)
}
