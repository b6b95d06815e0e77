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

// Package registry implements the L0 Registry Resolver: resolving JSR-like
// registry references to concrete artifact URLs, grounded on the teacher's
// cache-backed manifest fetch pattern (workspace/url.go, workspace/httpcache.go).
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bennypowers.dev/specresolve/pkgref"
)

// ErrUnresolved is returned when a well-formed reference names no known
// artifact.
var ErrUnresolved = errors.New("registry: unresolved reference")

// Cache is the injected cache/HTTP stack the resolver reads metadata
// through, mirroring the teacher's *workspace.HTTPCache.Fetch contract.
type Cache interface {
	Fetch(url string) ([]byte, error)
}

// meta is the subset of a registry package's version metadata the resolver
// needs: a map of exported sub-paths to concrete file names.
type meta struct {
	Exports map[string]string `json:"exports"`
}

// Resolver is the L0 Registry Resolver.
type Resolver struct {
	cache      Cache
	registry   string // base URL for the registry API, e.g. "https://jsr.io/"
	mu         sync.RWMutex
	metaByPkg  map[string]*meta // "name@version" -> metadata
	shortToRes map[string]string // canonical short-reference -> resource URL
}

// New constructs a Resolver against registryBaseURL (trailing slash
// optional) using cache for metadata lookups.
func New(cache Cache, registryBaseURL string) *Resolver {
	if !strings.HasSuffix(registryBaseURL, "/") {
		registryBaseURL += "/"
	}
	return &Resolver{
		cache:      cache,
		registry:   registryBaseURL,
		metaByPkg:  map[string]*meta{},
		shortToRes: map[string]string{},
	}
}

// ResourceURL resolves a short-reference to its concrete resource URL:
// req's package root artifact within the registry.
func (r *Resolver) ResourceURL(req pkgref.Reference) (string, error) {
	if req.Flavor != pkgref.FlavorRegistry {
		return "", fmt.Errorf("registry: %w: not a registry reference", ErrUnresolved)
	}
	version := req.Range
	if version == "" {
		return "", fmt.Errorf("registry: %w: unversioned reference requires resolution", ErrUnresolved)
	}
	base := r.registry + req.FullName() + "/" + version + "/"
	if req.SubPath == "" {
		return base, nil
	}
	return base + req.SubPath, nil
}

// LookupExportForPath resolves (name, version, path) to the exported file
// recorded in that version's metadata.
func (r *Resolver) LookupExportForPath(v pkgref.Version, subPath string) (string, error) {
	m, err := r.loadMeta(v)
	if err != nil {
		return "", err
	}
	if subPath == "" {
		subPath = "."
	}
	file, ok := m.Exports[subPath]
	if !ok {
		return "", fmt.Errorf("registry: %w: no export %q in %s", ErrUnresolved, subPath, v.String())
	}
	r.mu.Lock()
	r.shortToRes[v.String()] = r.registry + v.Name + "/" + v.Version + "/" + file
	r.mu.Unlock()
	return r.registry + v.Name + "/" + v.Version + "/" + file, nil
}

// LookupReqForNV returns the canonical short-reference text for (name,
// version), satisfying the round-trip law of spec.md §8.
func (r *Resolver) LookupReqForNV(v pkgref.Version) string {
	return pkgref.RegistryPrefix + v.Name + "@" + v.Version
}

func (r *Resolver) loadMeta(v pkgref.Version) (*meta, error) {
	key := v.String()
	r.mu.RLock()
	if m, ok := r.metaByPkg[key]; ok {
		r.mu.RUnlock()
		return m, nil
	}
	r.mu.RUnlock()

	metaURL := r.registry + v.Name + "/" + v.Version + "/meta.json"
	data, err := r.cache.Fetch(metaURL)
	if err != nil {
		return nil, fmt.Errorf("registry: %w: %v", ErrUnresolved, err)
	}
	var m meta
	if jsonErr := json.Unmarshal(data, &m); jsonErr != nil {
		return nil, fmt.Errorf("registry: %w: malformed metadata", ErrUnresolved)
	}

	r.mu.Lock()
	r.metaByPkg[key] = &m
	r.mu.Unlock()
	return &m, nil
}

// Refresh drops cached metadata, forcing the next lookup to re-fetch,
// mirroring the "refreshed when the cache reports a change" behavior of
// spec.md §4.7.
func (r *Resolver) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metaByPkg = map[string]*meta{}
}
