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

// Package pkgjson implements the L0 Package-JSON Resolver and In-Package
// Checker: finding the nearest manifest for a file URL, and tracking which
// declared dependency brought a resolved URL into the graph.
package pkgjson

import (
	"net/url"
	"path"
	"strings"

	"github.com/tidwall/gjson"

	"bennypowers.dev/specresolve/internal/platform"
)

// Manifest is the subset of package.json fields the resolver cares about.
type Manifest struct {
	Dir          string // directory containing package.json, file:// path component
	Name         string
	Version      string
	Dependencies map[string]string
	Exports      gjson.Result // raw "exports" field; no resolver in this module reads it
}

// Resolver finds the nearest package.json manifest for any file URL by
// walking directories upward, mirroring the teacher's readPackageJSON plus
// upward-climbing convention in workspace/discovery.go.
type Resolver struct {
	fs    platform.FileSystem
	cache map[string]*Manifest // directory -> manifest, nil means "probed, none found"
}

// New constructs a Resolver over the given filesystem.
func New(fs platform.FileSystem) *Resolver {
	return &Resolver{fs: fs, cache: map[string]*Manifest{}}
}

// GetClosestPackageJSON returns the nearest manifest for u, walking from the
// file's directory upward to the root. Returns nil, nil when no manifest is
// found; a filesystem error is reported separately from "not found".
func (r *Resolver) GetClosestPackageJSON(u string) (*Manifest, error) {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Scheme != "file" {
		return nil, nil
	}
	dir := path.Dir(parsed.Path)
	for {
		if m, ok := r.cache[dir]; ok {
			if m != nil {
				return m, nil
			}
		} else {
			manifestPath := path.Join(dir, "package.json")
			if r.fs.Exists(manifestPath) {
				data, rerr := r.fs.ReadFile(manifestPath)
				if rerr != nil {
					return nil, rerr
				}
				m := parseManifest(dir, data)
				r.cache[dir] = m
				return m, nil
			}
			r.cache[dir] = nil
		}
		parent := path.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func parseManifest(dir string, data []byte) *Manifest {
	text := string(data)
	m := &Manifest{
		Dir:          dir,
		Name:         gjson.Get(text, "name").String(),
		Version:      gjson.Get(text, "version").String(),
		Dependencies: map[string]string{},
		Exports:      gjson.Get(text, "exports"),
	}
	for _, field := range []string{"dependencies", "devDependencies", "peerDependencies"} {
		gjson.Get(text, field).ForEach(func(key, value gjson.Result) bool {
			if _, exists := m.Dependencies[key.String()]; !exists {
				m.Dependencies[key.String()] = value.String()
			}
			return true
		})
	}
	return m
}

// InPackageChecker is the predicate: is this URL inside a managed package
// tree?
type InPackageChecker interface {
	InNodeModules(u string) bool
}

// DefaultInPackageChecker implements in_node_modules exactly as specced:
// true if the URL is inside any managed package tree, or contains the
// literal segment "/node_modules/" (case-insensitive) and uses the file
// scheme.
type DefaultInPackageChecker struct {
	// Managed reports whether u is inside a package tree the managed
	// package-manager resolver owns; nil means "no managed resolver".
	Managed func(u string) bool
}

func (c DefaultInPackageChecker) InNodeModules(u string) bool {
	if c.Managed != nil && c.Managed(u) {
		return true
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Scheme != "file" {
		return false
	}
	return strings.Contains(strings.ToLower(parsed.Path), "/node_modules/")
}

// DepIndex is a mapping from a resolved file URL back to the declared
// dependency name that brought it in. Entries are recorded by the Graph
// Resolver each time it resolves a package-manager reference; nothing
// pre-populates the index from package.json dependencies.
//
// Open Question (a): on collision (two names resolving to the same URL),
// the last-inserted name silently wins, preserving the original behavior; a
// diagnostic hook is left for a future caller rather than implemented here.
type DepIndex struct {
	byURL map[string]string
}

// NewDepIndex builds an empty index.
func NewDepIndex() *DepIndex {
	return &DepIndex{byURL: map[string]string{}}
}

// Record associates resolvedURL with depName, overwriting any prior entry.
func (d *DepIndex) Record(resolvedURL, depName string) {
	d.byURL[resolvedURL] = depName
}

// Lookup returns the dependency name for a previously recorded URL.
func (d *DepIndex) Lookup(resolvedURL string) (string, bool) {
	name, ok := d.byURL[resolvedURL]
	return name, ok
}

// IsBareDependency reports whether specifierText names one of manifest's
// declared dependencies by bare package name (no relative or URL prefix),
// grounded on the original's is_bare_package_json_dep.
func IsBareDependency(manifest *Manifest, specifierText string) bool {
	if manifest == nil {
		return false
	}
	if strings.HasPrefix(specifierText, ".") || strings.Contains(specifierText, "://") {
		return false
	}
	name := specifierText
	if slash := strings.Index(specifierText, "/"); slash >= 0 {
		if strings.HasPrefix(specifierText, "@") {
			if second := strings.Index(specifierText[slash+1:], "/"); second >= 0 {
				name = specifierText[:slash+1+second]
			}
		} else {
			name = specifierText[:slash]
		}
	}
	_, ok := manifest.Dependencies[name]
	return ok
}
