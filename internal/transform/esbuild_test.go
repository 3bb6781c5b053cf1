package transform

import (
	"encoding/json"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEngines(t *testing.T) {
	engines, err := ParseEngines([]string{"chrome58", "Safari11.1"})
	require.NoError(t, err)
	assert.Equal(t, []api.Engine{{Name: api.EngineChrome, Version: "58"}, {Name: api.EngineSafari, Version: "11.1"}}, engines)

	_, err = ParseEngines([]string{"netscape4"})
	require.Error(t, err)
	_, err = ParseEngines([]string{"chrome"})
	require.Error(t, err)
}

func TestESBuild_StylesheetModes(t *testing.T) {
	e, err := NewESBuild([]string{"chrome58"}, false)
	require.NoError(t, err)
	in := Input{Name: "/src/main.css", Contents: []byte("a {\n  color: red;\n}\n")}

	dev, err := e.Stylesheet(in, false, true)
	require.NoError(t, err)
	assert.Contains(t, string(dev.Code), "color: red;")
	require.NotEmpty(t, dev.Map)
	var m map[string]any
	require.NoError(t, json.Unmarshal(dev.Map, &m))
	assert.EqualValues(t, 3, m["version"])

	prod, err := e.Stylesheet(in, true, false)
	require.NoError(t, err)
	assert.Contains(t, string(prod.Code), "a{color:red}")
	assert.Empty(t, prod.Map)
	assert.False(t, HasMapComment(prod.Code))
}

func TestESBuild_ScriptMinify(t *testing.T) {
	e, err := NewESBuild(nil, false)
	require.NoError(t, err)
	in := Input{Name: "/src/main.js", Contents: []byte("function greet(name) {\n  return 'hi ' + name;\n}\nwindow.greet = greet;\n")}

	prod, err := e.Script(in, true, false)
	require.NoError(t, err)
	assert.NotContains(t, string(prod.Code), "\n  return")
	assert.Less(t, len(prod.Code), len(in.Contents))

	dev, err := e.Script(in, false, true)
	require.NoError(t, err)
	assert.Contains(t, string(dev.Code), "function greet(name)")
	assert.NotEmpty(t, dev.Map)
}

func TestESBuild_SyntaxError(t *testing.T) {
	e, err := NewESBuild(nil, false)
	require.NoError(t, err)
	_, err = e.Script(Input{Name: "/src/main.js", Contents: []byte("function (")}, false, false)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Line)
}

func TestESBuild_Bundle(t *testing.T) {
	dir := t.TempDir()
	write(t, dir+"/lib.js", "export const answer = 42;\n")
	main := write(t, dir+"/main.js", "import { answer } from './lib.js';\nconsole.log(answer);\n")

	e, err := NewESBuild(nil, true)
	require.NoError(t, err)
	out, err := e.Script(Input{Name: main, Contents: []byte("import { answer } from './lib.js';\nconsole.log(answer);\n")}, false, false)
	require.NoError(t, err)
	assert.Contains(t, string(out.Code), "42")
	assert.NotContains(t, string(out.Code), "import")
}
