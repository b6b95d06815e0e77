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

// Package graph implements the L1 Node-Aware Resolver and the L2 Graph
// Resolver: a single façade over all L1 resolvers for module-graph
// construction, plus the configurable workspace-resolver features (import
// map, JSX import source, sloppy imports, vendor directory, bare Node
// builtins).
package graph

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/dunglas/go-urlpattern"

	"bennypowers.dev/specresolve/internal/platform"
	"bennypowers.dev/specresolve/npmres"
	"bennypowers.dev/specresolve/pkgjson"
	"bennypowers.dev/specresolve/pkgref"
	"bennypowers.dev/specresolve/redirect"
	"bennypowers.dev/specresolve/registry"
)

// ErrUnresolved means the specifier is well-formed but no artifact matches.
var ErrUnresolved = errors.New("graph: unresolved specifier")

// ErrMalformed means the specifier text could not be parsed.
var ErrMalformed = errors.New("graph: malformed specifier")

// sloppyImportSuffixes is the deterministic order sloppy-imports tries,
// per spec.md §4.2.
var sloppyImportSuffixes = []string{".ts", ".tsx", ".js", ".mjs", "/index.ts", "/index.tsx", "/index.js", "/index.mjs"}

// nodeBuiltins is the set of platform builtin module names recognized when
// bare-node-builtins is enabled.
var nodeBuiltins = map[string]bool{
	"assert": true, "buffer": true, "child_process": true, "cluster": true,
	"crypto": true, "dgram": true, "dns": true, "events": true, "fs": true,
	"http": true, "https": true, "net": true, "os": true, "path": true,
	"process": true, "querystring": true, "readline": true, "stream": true,
	"string_decoder": true, "timers": true, "tls": true, "tty": true,
	"url": true, "util": true, "v8": true, "vm": true, "zlib": true,
}

// WorkspaceFeatures configures the optional rewrite stages of step 4 in the
// resolution order.
type WorkspaceFeatures struct {
	ImportMap           *ImportMap
	JSXImportSource      string // carried from configuration; Resolve does not read it
	SloppyImportsEnabled bool
	VendorDir            string // empty disables
	BareNodeBuiltins     bool
	VendorPattern        *urlpattern.URLPattern // membership test for which URLs get mirrored
}

// GraphImportEntry is one precomputed (specifier-text -> resolved URL, kind)
// pair harvested from project configuration at scope construction.
type GraphImportEntry struct {
	ResolvedURL string
	Kind        string // e.g. "jsx-import-source", "compiler-option-types"
}

// Resolver is the L2 Graph Resolver.
type Resolver struct {
	registry  *registry.Resolver
	npm       npmres.Resolver
	redirects *redirect.Resolver
	pkgjson   *pkgjson.Resolver
	depIndex  *pkgjson.DepIndex
	fs        platform.FileSystem
	features  WorkspaceFeatures

	// graphImports is precomputed and immutable after scope construction,
	// per the Graph Import data-model entry.
	graphImports map[string]map[string]GraphImportEntry
}

// New constructs a Graph Resolver. npm may be nil if the scope has no
// package-manager resolver (construction must always yield a usable
// resolver; a nil capability simply surfaces ErrUnresolved instead of
// being fatal, per spec.md §4.4).
func New(reg *registry.Resolver, npm npmres.Resolver, redirects *redirect.Resolver, pkgjsonResolver *pkgjson.Resolver, depIndex *pkgjson.DepIndex, fs platform.FileSystem, features WorkspaceFeatures) *Resolver {
	return &Resolver{
		registry:     reg,
		npm:          npm,
		redirects:    redirects,
		pkgjson:      pkgjsonResolver,
		depIndex:     depIndex,
		fs:           fs,
		features:     features,
		graphImports: map[string]map[string]GraphImportEntry{},
	}
}

// WithNPM returns a shallow copy of the Graph Resolver with its npm
// delegate swapped for npm, leaving every other collaborator shared. This
// is the hook a Scope Resolver's Snapshot uses to keep the graph path
// pointed at a forked Package-Manager Resolver instead of the original
// live one, per spec.md §4.4 snapshot isolation.
func (r *Resolver) WithNPM(npm npmres.Resolver) *Resolver {
	clone := *r
	clone.npm = npm
	return &clone
}

// SetGraphImports installs the precomputed graph-import set for referrer.
func (r *Resolver) SetGraphImports(referrer string, entries map[string]GraphImportEntry) {
	r.graphImports[referrer] = entries
}

// GraphImportsByReferrer returns the immutable precomputed set for referrer.
func (r *Resolver) GraphImportsByReferrer(referrer string) map[string]GraphImportEntry {
	return r.graphImports[referrer]
}

// Resolve is the Graph Resolver's single entry point, implementing the
// resolution order of spec.md §4.2.
func (r *Resolver) Resolve(specifierText, referrer string, mode npmres.Mode) (string, error) {
	// Graph imports precomputed for this referrer take priority when they
	// name the exact specifier text, since they are config-driven
	// overrides (e.g. compiler-option "types" entries).
	if entries, ok := r.graphImports[referrer]; ok {
		if entry, ok := entries[specifierText]; ok {
			return entry.ResolvedURL, nil
		}
	}

	if pkgref.IsShortReference(specifierText) {
		ref, err := pkgref.Parse(specifierText)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch ref.Flavor {
		case pkgref.FlavorRegistry:
			return r.resolveRegistry(ref)
		case pkgref.FlavorPM:
			return r.resolvePM(ref, referrer, mode)
		}
	}

	if hasScheme(specifierText) {
		return r.resolveSchemeURL(specifierText, referrer)
	}

	if rewritten, ok := r.applyWorkspaceRewrite(specifierText, referrer); ok {
		return r.Resolve(rewritten, referrer, mode)
	}

	return r.resolveRelative(specifierText, referrer)
}

func (r *Resolver) resolveRegistry(ref pkgref.Reference) (string, error) {
	if r.registry == nil {
		return "", fmt.Errorf("%w: no registry resolver configured", ErrUnresolved)
	}
	u, err := r.registry.ResourceURL(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnresolved, err)
	}
	return u, nil
}

// resolvePM delegates to the Package-Manager Resolver via the Node-Aware
// Resolver, per spec.md §4.2 step 2.
func (r *Resolver) resolvePM(ref pkgref.Reference, referrer string, mode npmres.Mode) (string, error) {
	if r.npm == nil {
		return "", fmt.Errorf("%w: no package-manager resolver configured", ErrUnresolved)
	}
	u, err := r.npm.Resolve(ref, referrer, mode)
	if err != nil {
		return "", err
	}
	if r.depIndex != nil {
		r.depIndex.Record(u, ref.FullName())
	}
	return u, nil
}

func (r *Resolver) resolveSchemeURL(specifierText, referrer string) (string, error) {
	target := specifierText
	if r.features.VendorDir != "" && isHTTPURL(specifierText) && r.vendorMatches(specifierText) {
		target = r.rewriteToVendor(specifierText)
	}
	if r.redirects == nil {
		return target, nil
	}
	resolved, ok := r.redirects.Resolve(target)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnresolved, specifierText)
	}
	return resolved, nil
}

func (r *Resolver) vendorMatches(specifierText string) bool {
	if r.features.VendorPattern == nil {
		return true
	}
	return r.features.VendorPattern.Exec(specifierText, "") != nil
}

func (r *Resolver) rewriteToVendor(specifierText string) string {
	u, err := url.Parse(specifierText)
	if err != nil {
		return specifierText
	}
	return "file://" + path.Join(r.features.VendorDir, u.Host, u.Path)
}

// applyWorkspaceRewrite tries, in order, import map, bare Node builtins,
// and sloppy imports. It returns the rewritten specifier text and true on
// the first rewrite that applies. JSXImportSource is not consulted here or
// anywhere else in Resolve.
func (r *Resolver) applyWorkspaceRewrite(specifierText, referrer string) (string, bool) {
	if r.features.ImportMap != nil {
		if target, ok := r.features.ImportMap.Resolve(specifierText); ok {
			return target, true
		}
	}

	if r.features.BareNodeBuiltins && isBareSpecifier(specifierText) && nodeBuiltins[specifierText] {
		return "node:" + specifierText, true
	}

	if r.features.SloppyImportsEnabled && strings.HasPrefix(specifierText, ".") {
		if hit, ok := r.sloppyImportCandidate(specifierText, referrer); ok {
			return hit, true
		}
	}

	return "", false
}

// sloppyImportCandidate tries sloppyImportSuffixes in order against the
// relative specifier resolved onto referrer, returning the first candidate
// whose file exists (spec.md §8 scenario 5).
func (r *Resolver) sloppyImportCandidate(specifierText, referrer string) (string, bool) {
	if r.fs == nil {
		return "", false
	}
	base, err := url.Parse(referrer)
	if err != nil {
		return "", false
	}
	rel, err := url.Parse(specifierText)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(rel)
	if resolved.Scheme != "file" {
		return "", false
	}
	for _, suffix := range sloppyImportSuffixes {
		candidate := resolved.Path + suffix
		if r.fs.Exists(strings.TrimPrefix(candidate, "/")) {
			candidateURL := *resolved
			candidateURL.Path = candidate
			return candidateURL.String(), true
		}
	}
	return "", false
}

// resolveRelative resolves specifierText against referrer directly, the
// final step of the resolution order.
func (r *Resolver) resolveRelative(specifierText, referrer string) (string, error) {
	base, err := url.Parse(referrer)
	if err != nil {
		return "", fmt.Errorf("%w: malformed referrer %s", ErrMalformed, referrer)
	}
	rel, err := url.Parse(specifierText)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformed, specifierText)
	}
	return base.ResolveReference(rel).String(), nil
}

// CreateGraphNpmResolver exposes an opaque resolver for graph-builder
// handoff, per the collaborator interface of spec.md §6.
func (r *Resolver) CreateGraphNpmResolver(referrer string) npmres.Resolver {
	return r.npm
}

func hasScheme(specifierText string) bool {
	idx := strings.Index(specifierText, ":")
	if idx <= 0 {
		return false
	}
	for _, c := range specifierText[:idx] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

func isHTTPURL(specifierText string) bool {
	return strings.HasPrefix(specifierText, "http://") || strings.HasPrefix(specifierText, "https://")
}

func isBareSpecifier(specifierText string) bool {
	return !strings.HasPrefix(specifierText, ".") && !strings.HasPrefix(specifierText, "/") && !hasScheme(specifierText)
}
