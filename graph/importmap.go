/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package graph

import (
	"maps"

	mappafs "bennypowers.dev/mappa/fs"
	mappaimportmap "bennypowers.dev/mappa/importmap"
	"bennypowers.dev/mappa/packagejson"
	"bennypowers.dev/mappa/resolve"
	"bennypowers.dev/mappa/resolve/local"

	"bennypowers.dev/specresolve/internal/platform"
)

// ImportMap is the JSON mapping specifier prefixes to URL prefixes of
// spec.md §4.2. It mirrors mappa's own importmap.ImportMap field-for-field
// so conversion is a straight copy, the same bridge the teacher's
// serve/middleware/importmap/mappa_adapter.go performs.
type ImportMap struct {
	Imports map[string]string
	Scopes  map[string]map[string]string
}

// WorkspacePackage names a package participating in workspace-wide import
// map resolution.
type WorkspacePackage struct {
	Name string
	Path string
}

type fsAdapter struct {
	platform.FileSystem
}

var _ mappafs.FileSystem = (*fsAdapter)(nil)

func wrapFS(fs platform.FileSystem) mappafs.FileSystem {
	return &fsAdapter{fs}
}

func fromMappa(m *mappaimportmap.ImportMap) *ImportMap {
	if m == nil {
		return nil
	}
	result := &ImportMap{Imports: make(map[string]string, len(m.Imports))}
	maps.Copy(result.Imports, m.Imports)
	if m.Scopes != nil {
		result.Scopes = make(map[string]map[string]string, len(m.Scopes))
		for scopeKey, scopeMap := range m.Scopes {
			result.Scopes[scopeKey] = make(map[string]string, len(scopeMap))
			maps.Copy(result.Scopes[scopeKey], scopeMap)
		}
	}
	return result
}

func toMappa(m *ImportMap) *mappaimportmap.ImportMap {
	if m == nil {
		return nil
	}
	result := &mappaimportmap.ImportMap{Imports: make(map[string]string, len(m.Imports))}
	maps.Copy(result.Imports, m.Imports)
	if m.Scopes != nil {
		result.Scopes = make(map[string]map[string]string, len(m.Scopes))
		for scopeKey, scopeMap := range m.Scopes {
			result.Scopes[scopeKey] = make(map[string]string, len(scopeMap))
			maps.Copy(result.Scopes[scopeKey], scopeMap)
		}
	}
	return result
}

// BuildWorkspaceImportMap generates the precomputed import map for a
// workspace root, delegating name/version/sub-path resolution to mappa —
// directly on-domain here since mappa's job (name/version/sub-path →
// concrete file) is this module's core problem, the same library the
// teacher wires for dev-server workspace resolution.
func BuildWorkspaceImportMap(rootDir string, fs platform.FileSystem, packages []WorkspacePackage, input *ImportMap) (*ImportMap, error) {
	resolver := local.New(wrapFS(fs), nil)
	if len(packages) > 0 {
		mappaPkgs := make([]resolve.WorkspacePackage, len(packages))
		for i, p := range packages {
			mappaPkgs[i] = resolve.WorkspacePackage{Name: p.Name, Path: p.Path}
		}
		resolver = resolver.WithWorkspacePackages(mappaPkgs)
	}
	if input != nil {
		resolver = resolver.WithInputMap(toMappa(input))
	}
	cache := packagejson.NewMemoryCache()
	resolver = resolver.WithPackageCache(cache)

	result, err := resolver.Resolve(rootDir)
	if err != nil {
		return nil, err
	}
	return fromMappa(result), nil
}

// Resolve applies the longest-matching-prefix rule of spec.md §4.2: the
// longest matching specifier prefix in Imports wins, and the remainder of
// the specifier is appended to the mapped prefix.
func (m *ImportMap) Resolve(specifierText string) (string, bool) {
	if m == nil {
		return "", false
	}
	best := ""
	for prefix := range m.Imports {
		if len(prefix) <= len(best) {
			continue
		}
		if specifierText == prefix || (len(prefix) > 0 && len(specifierText) >= len(prefix) && specifierText[:len(prefix)] == prefix) {
			best = prefix
		}
	}
	if best == "" {
		return "", false
	}
	target := m.Imports[best]
	remainder := specifierText[len(best):]
	return target + remainder, true
}
