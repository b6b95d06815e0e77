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

// Package npmres implements the L0 Package-Manager Resolver: two variants,
// bring-your-own and managed, sharing one resolve contract (spec.md §4.5).
package npmres

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"bennypowers.dev/specresolve/pkgjson"
	"bennypowers.dev/specresolve/pkgref"
)

// Mode threads the Execution/Types distinction through resolution.
type Mode int

const (
	ModeExecution Mode = iota
	ModeTypes
)

// ErrUnresolved means the package-manager tree has no artifact matching req.
var ErrUnresolved = errors.New("npmres: unresolved package reference")

// ErrNeedsCache is the environmental-failure outcome: the managed variant's
// cache policy forbids a network fetch and the package has not yet been
// populated by an explicit "cache" action.
var ErrNeedsCache = errors.New("npmres: package needs cache population")

// Resolver is the common capability set both variants implement, per
// Design Note §9(b): "a tagged variant with a small common interface rather
// than deep abstraction."
type Resolver interface {
	Resolve(req pkgref.Reference, referrer string, mode Mode) (string, error)
	AsManaged() (*Managed, bool)
	Snapshot() Resolver
	SetPackageReqs(reqs []pkgref.Reference) error
}

// ---- Bring-your-own variant ----

// BringYourOwn trusts an externally populated install tree: it looks up a
// package purely by walking the nearest manifest starting at the referrer,
// exactly as the teacher's workspace discovery climbs to find package.json.
type BringYourOwn struct {
	pkgjsonResolver *pkgjson.Resolver
	nodeModulesDir  string // explicit install tree root, optional
}

// NewBringYourOwn constructs a bring-your-own resolver. nodeModulesDir may
// be empty, in which case lookup starts from the referrer's own tree.
func NewBringYourOwn(pkgjsonResolver *pkgjson.Resolver, nodeModulesDir string) *BringYourOwn {
	return &BringYourOwn{pkgjsonResolver: pkgjsonResolver, nodeModulesDir: nodeModulesDir}
}

func (b *BringYourOwn) Resolve(req pkgref.Reference, referrer string, mode Mode) (string, error) {
	root := b.nodeModulesDir
	if root == "" {
		manifest, err := b.pkgjsonResolver.GetClosestPackageJSON(referrer)
		if err != nil {
			return "", fmt.Errorf("npmres: %w", err)
		}
		if manifest == nil {
			return "", fmt.Errorf("npmres: %w: no package.json found from %s", ErrUnresolved, referrer)
		}
		root = path.Join(manifest.Dir, "node_modules")
	}
	pkgDir := path.Join(root, req.FullName())
	subPath := req.SubPath
	if mode == ModeTypes && subPath == "" {
		subPath = "index.d.ts"
	}
	if subPath == "" {
		subPath = "index.js"
	}
	return "file://" + path.Join(pkgDir, subPath), nil
}

func (b *BringYourOwn) AsManaged() (*Managed, bool) { return nil, false }

func (b *BringYourOwn) Snapshot() Resolver {
	// Share-owned and already immutable after construction; no fork needed.
	return b
}

func (b *BringYourOwn) SetPackageReqs(reqs []pkgref.Reference) error {
	// Bring-your-own trusts the externally populated tree; nothing to do.
	return nil
}

// ---- Managed variant ----

// CacheSetting controls whether the managed resolver is permitted to
// initiate a network fetch.
type CacheSetting int

const (
	// CacheSettingOnly never initiates a network fetch; unknown packages
	// are reported as ErrNeedsCache. This is the setting used during LSP
	// operation per spec.md §4.5.
	CacheSettingOnly CacheSetting = iota
	// CacheSettingUse is recorded on the resolver but Resolve treats it
	// like CacheSettingOnly: Resolve never fetches. Packages are fetched
	// only through Populate or the CDNPopulator used by the "cache" command.
	CacheSettingUse
)

// SnapshotPolicy chooses how a managed resolver derives its installed set.
type SnapshotPolicy int

const (
	SnapshotFromLockfile SnapshotPolicy = iota
	SnapshotSpecified
)

// Populator fetches and extracts a package version into the cache
// directory, used only by the explicit population path, grounded on the
// teacher's CDN-fallback-then-tarball chain in workspace/remote.go.
type Populator interface {
	Populate(name, version string) (dir string, err error)
}

// Managed manages its own cache; during LSP operation it uses
// CacheSettingOnly and never fetches implicitly.
type Managed struct {
	mu             sync.RWMutex
	cacheDir       string
	cacheSetting   CacheSetting
	snapshotPolicy SnapshotPolicy
	populator      Populator
	installed      map[string]string // "name@version" -> extracted dir
	reqs           map[string]pkgref.Reference
}

// NewManaged constructs a managed resolver rooted at cacheDir. Package
// directories already present in cacheDir (as written by CDNPopulator) are
// registered as installed.
func NewManaged(cacheDir string, setting CacheSetting, policy SnapshotPolicy, populator Populator) *Managed {
	m := &Managed{
		cacheDir:       cacheDir,
		cacheSetting:   setting,
		snapshotPolicy: policy,
		populator:      populator,
		installed:      map[string]string{},
		reqs:           map[string]pkgref.Reference{},
	}
	if entries, err := os.ReadDir(cacheDir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				m.installed[strings.ReplaceAll(e.Name(), "+", "/")] = path.Join(cacheDir, e.Name())
			}
		}
	}
	return m
}

func (m *Managed) Resolve(req pkgref.Reference, referrer string, mode Mode) (string, error) {
	key := req.FullName() + "@" + req.Range
	m.mu.RLock()
	dir, ok := m.installed[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("npmres: %w: %s", ErrNeedsCache, req.String())
	}
	subPath := req.SubPath
	if mode == ModeTypes && subPath == "" {
		subPath = "index.d.ts"
	}
	if subPath == "" {
		subPath = "index.js"
	}
	return "file://" + path.Join(dir, subPath), nil
}

func (m *Managed) AsManaged() (*Managed, bool) { return m, true }

// Snapshot forks the managed resolver; per spec.md §4.4 this is the only
// sub-resolver that needs to "snapshot itself" rather than being shared.
func (m *Managed) Snapshot() Resolver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clone := &Managed{
		cacheDir:       m.cacheDir,
		cacheSetting:   m.cacheSetting,
		snapshotPolicy: m.snapshotPolicy,
		populator:      m.populator,
		installed:      make(map[string]string, len(m.installed)),
		reqs:           make(map[string]pkgref.Reference, len(m.reqs)),
	}
	for k, v := range m.installed {
		clone.installed[k] = v
	}
	for k, v := range m.reqs {
		clone.reqs[k] = v
	}
	return clone
}

// SetPackageReqs is a bulk update; idempotent (setting the same requirement
// set twice is equivalent to setting it once), per spec.md §5.
func (m *Managed) SetPackageReqs(reqs []pkgref.Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range reqs {
		m.reqs[req.String()] = req
	}
	return nil
}

// Populate performs the explicit "cache" action: it is never invoked by the
// resolver itself (CacheSettingOnly forbids it during LSP operation), only
// by an external caller reacting to an ErrNeedsCache outcome.
func (m *Managed) Populate(name, version string) error {
	if m.populator == nil {
		return fmt.Errorf("npmres: %w: no populator configured", ErrNeedsCache)
	}
	dir, err := m.populator.Populate(name, version)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.installed[name+"@"+version] = dir
	m.mu.Unlock()
	return nil
}

// IsBareDependency reports whether specifierText names, by bare package
// name, a dependency declared in manifest. It only checks the declared
// dependency names; it does not attempt to resolve the package.
func IsBareDependency(manifest *pkgjson.Manifest, specifierText string) bool {
	return pkgjson.IsBareDependency(manifest, specifierText)
}
