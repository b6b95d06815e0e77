package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/specresolve/internal/platform"
	"bennypowers.dev/specresolve/npmres"
)

func TestResolveRelative(t *testing.T) {
	r := New(nil, nil, nil, nil, nil, nil, WorkspaceFeatures{})
	resolved, err := r.Resolve("./util.js", "file:///p/main.ts", npmres.ModeTypes)
	require.NoError(t, err)
	assert.Equal(t, "file:///p/util.js", resolved)
}

func TestResolveSloppyImports(t *testing.T) {
	mem := platform.NewMapFS(map[string]string{"p/util.ts": "export {}"})
	r := New(nil, nil, nil, nil, nil, mem, WorkspaceFeatures{SloppyImportsEnabled: true})

	resolved, err := r.Resolve("./util", "file:///p/main.ts", npmres.ModeTypes)
	require.NoError(t, err)
	assert.Equal(t, "file:///p/util.ts", resolved)
}

func TestResolveImportMap(t *testing.T) {
	im := &ImportMap{Imports: map[string]string{"lit/": "https://esm.sh/lit/"}}
	r := New(nil, nil, nil, nil, nil, nil, WorkspaceFeatures{ImportMap: im})

	resolved, err := r.Resolve("lit/decorators.js", "file:///p/main.ts", npmres.ModeTypes)
	require.NoError(t, err)
	assert.Equal(t, "https://esm.sh/lit/decorators.js", resolved)
}

func TestResolveBareNodeBuiltin(t *testing.T) {
	r := New(nil, nil, nil, nil, nil, nil, WorkspaceFeatures{BareNodeBuiltins: true})

	resolved, err := r.Resolve("fs", "file:///p/main.ts", npmres.ModeTypes)
	require.NoError(t, err)
	assert.Equal(t, "node:fs", resolved)
}
