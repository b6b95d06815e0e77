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

package scope

import (
	"fmt"
	"sync"

	"bennypowers.dev/specresolve/internal/logging"
	"bennypowers.dev/specresolve/internal/platform"
	"bennypowers.dev/specresolve/pkgref"
)

// entry pairs a scope's root with its resolver, kept in insertion order so
// last-insertion-wins tie-breaking (data-model invariant, spec.md §3) is a
// reverse walk.
type entry struct {
	root     string
	resolver *Resolver
}

// Router partitions a workspace into disjoint configuration scopes and
// dispatches every query to the resolver bound to the referring file's
// scope.
type Router struct {
	mu       sync.RWMutex
	unscoped *Resolver
	scopes   []entry
}

// NewRouter constructs a Router. unscoped must never be nil: invariant 4 of
// spec.md §3 requires the router never be queried before at least one
// default resolver is constructed.
func NewRouter(unscoped *Resolver) *Router {
	return &Router{unscoped: unscoped}
}

// Add registers resolver under root, appended after any existing scopes
// sharing the same root so it wins ties (last-inserted wins).
func (r *Router) Add(root string, resolver *Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes = append(r.scopes, entry{root: root, resolver: resolver})
}

// Replace atomically swaps the entire scope set, mirroring the lifecycle
// rule that a resolver set lives until the next config-change event
// replaces it wholesale (spec.md §3 Lifecycle).
func (r *Router) Replace(unscoped *Resolver, scopes map[string]*Resolver, order []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unscoped = unscoped
	r.scopes = make([]entry, 0, len(order))
	for _, root := range order {
		if res, ok := scopes[root]; ok {
			r.scopes = append(r.scopes, entry{root: root, resolver: res})
		}
	}
}

// Route maps referrer to its Scope Resolver. With no referrer, it returns
// the unscoped default. With a referrer, it reverse-walks the registered
// scopes (containment decided by each scope's own Membership predicate)
// and returns the last-inserted match, whether or not its root is the
// longest; absent a match, the unscoped default.
func (r *Router) Route(referrer *string) *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if referrer == nil {
		return r.unscoped
	}
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if r.scopes[i].resolver.Membership != nil && r.scopes[i].resolver.Membership.Contains(*referrer) {
			return r.scopes[i].resolver
		}
	}
	return r.unscoped
}

// scopeByRoot returns the resolver registered under the exact root
// identifier, or the unscoped default when root is empty. Returns nil when
// root is non-empty and unregistered. Callers must hold r.mu.
func (r *Router) scopeByRoot(root string) *Resolver {
	if root == "" {
		return r.unscoped
	}
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if r.scopes[i].root == root {
			return r.scopes[i].resolver
		}
	}
	return nil
}

// SetPackageReqs is the bulk set_npm_reqs operation of spec.md §6: reqsByScope
// maps a scope identifier (its root, or "" for the unscoped default) to the
// package requirements that scope's npm resolver should hold. Per the
// propagation policy of spec.md §7, bulk operations that fan out over
// scopes isolate per-scope (and per-requirement) failures: one failure
// never aborts the rest. Every failure is logged via internal/logging with
// the scope identifier and the failing requirement; progress is reported
// through the injected platform.ProgressReporter as each scope completes.
// The operation is idempotent (spec.md §5): setting the same requirement
// set twice is equivalent to setting it once, since the underlying
// per-variant SetPackageReqs is itself idempotent.
func (r *Router) SetPackageReqs(reqsByScope map[string][]pkgref.Reference, progress platform.ProgressReporter) {
	if progress == nil {
		progress = platform.NoopProgressReporter{}
	}
	logger := logging.GetLogger()

	r.mu.RLock()
	defer r.mu.RUnlock()

	for root, reqs := range reqsByScope {
		label := root
		if label == "" {
			label = "<unscoped>"
		}

		resolver := r.scopeByRoot(root)
		if resolver == nil || resolver.NPM == nil {
			logger.Warning("scope: set_npm_reqs: unknown scope %q", label)
			continue
		}

		progress.Report(label, fmt.Sprintf("setting %d package requirement(s)", len(reqs)))
		for _, req := range reqs {
			if err := resolver.NPM.SetPackageReqs([]pkgref.Reference{req}); err != nil {
				logger.Warning("scope: set_npm_reqs: scope %q: requirement %q: %v", label, req.String(), err)
				continue
			}
		}
		progress.Report(label, "done")
	}
}
