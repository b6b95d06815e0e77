package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/specresolve/internal/platform"
)

func TestLoadScope(t *testing.T) {
	fs := platform.NewMapFS(map[string]string{
		"cem.yaml": `
scope: file:///workspace/pkg-a/
byonm: false
nodeModulesDir: node_modules
vendorDir: vendor
jsxImportSource: react
unstable: [bare-node-builtins]
npmrc:
  registries:
    "@scope": https://registry.example.com/
lockfile: deno.lock
`,
	})

	scope, err := Load(fs, "cem.yaml")
	require.NoError(t, err)
	assert.Equal(t, "file:///workspace/pkg-a/", scope.ScopeRoot)
	assert.False(t, scope.Byonm)
	assert.Equal(t, "node_modules", scope.NodeModulesDir)
	assert.Equal(t, "vendor", scope.VendorDir)
	assert.Equal(t, "react", scope.JSXImportSource)
	assert.True(t, scope.HasUnstable("bare-node-builtins"))
	assert.False(t, scope.HasUnstable("other"))
	assert.Equal(t, "https://registry.example.com/", scope.Npmrc.Registries["@scope"])
	assert.Equal(t, "deno.lock", scope.Lockfile)
}

func TestScopeClone(t *testing.T) {
	original := Scope{
		Unstable: []string{"bare-node-builtins"},
		Npmrc:    NpmrcConfig{Registries: map[string]string{"@scope": "https://example.com/"}},
	}
	clone := original.Clone()
	clone.Unstable[0] = "mutated"
	clone.Npmrc.Registries["@scope"] = "https://mutated.example.com/"

	assert.Equal(t, "bare-node-builtins", original.Unstable[0])
	assert.Equal(t, "https://example.com/", original.Npmrc.Registries["@scope"])
}

func TestLoadLockfile(t *testing.T) {
	fs := platform.NewMapFS(map[string]string{
		"deno.lock": `{
			// trailing comment, stripped by jsonc
			"version": "4",
			"redirects": {
				"https://deno.land/std/mod.ts": "https://deno.land/std@0.200.0/mod.ts",
			},
			"packages": {
				"specifiers": {
					"npm:lodash@^4": "npm:lodash@4.17.21",
				}
			}
		}`,
	})

	lf, err := LoadLockfile(fs, "deno.lock")
	require.NoError(t, err)
	assert.Equal(t,
		"https://deno.land/std@0.200.0/mod.ts",
		lf.Redirects["https://deno.land/std/mod.ts"])
	assert.Equal(t, "npm:lodash@4.17.21", lf.Specifiers["npm:lodash@^4"])
}

func TestIsPackageSpecifier(t *testing.T) {
	assert.True(t, IsPackageSpecifier("npm:lodash"))
	assert.True(t, IsPackageSpecifier("jsr:@std/fs"))
	assert.False(t, IsPackageSpecifier("./local.ts"))
}
