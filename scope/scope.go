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

// Package scope implements the L3 Scope Resolver and Scope Router: a
// complete resolver bound to one configuration scope, and the router that
// maps referrer URLs to the correct one.
package scope

import (
	ignore "github.com/sabhiram/go-gitignore"

	"bennypowers.dev/specresolve/cjsesm"
	"bennypowers.dev/specresolve/graph"
	"bennypowers.dev/specresolve/npmres"
	"bennypowers.dev/specresolve/pkgjson"
	"bennypowers.dev/specresolve/redirect"
	"bennypowers.dev/specresolve/registry"
)

// Membership is the containment predicate a Scope Descriptor delegates to,
// per Design Note §9(c): richer than bare string prefixing, so excluded
// sub-paths can be expressed.
type Membership interface {
	Contains(referrer string) bool
}

// PrefixMembership is the common case: referrer is contained when it has
// root as a string prefix.
type PrefixMembership struct {
	Root string
}

func (m PrefixMembership) Contains(referrer string) bool {
	return len(referrer) >= len(m.Root) && referrer[:len(m.Root)] == m.Root
}

// ExcludingMembership wraps a base Membership with gitignore-style
// exclusion sub-paths, generalizing the teacher's ad hoc negated-glob
// handling in workspace/discovery.go via a real gitignore matcher.
type ExcludingMembership struct {
	Base     Membership
	Excludes *ignore.GitIgnore
}

func (m ExcludingMembership) Contains(referrer string) bool {
	if !m.Base.Contains(referrer) {
		return false
	}
	if m.Excludes == nil {
		return true
	}
	return !m.Excludes.MatchesPath(referrer)
}

// Resolver is the L3 Scope Resolver: a complete resolver bound to one
// configuration scope.
type Resolver struct {
	Root       string
	Membership Membership
	CJSESM     *cjsesm.Tracker
	Graph      *graph.Resolver
	Registry   *registry.Resolver
	NPM        npmres.Resolver
	PkgJSON    *pkgjson.Resolver
	Redirects  *redirect.Resolver
	DepIndex   *pkgjson.DepIndex
}

// Snapshot produces a deep, shared-ownership copy in which only the
// package-manager resolver is asked to fork itself; every other
// sub-resolver is already immutable after construction and is shared,
// per spec.md §4.4 and Design Note §9. The Graph Resolver delegates to the
// package-manager resolver internally, so it is rebuilt against the forked
// NPM handle rather than shared by pointer — otherwise a query through the
// snapshot's graph path would still observe later mutations of the live
// managed resolver.
func (r *Resolver) Snapshot() *Resolver {
	clone := *r
	if r.NPM != nil {
		clone.NPM = r.NPM.Snapshot()
	}
	if r.Graph != nil {
		clone.Graph = r.Graph.WithNPM(clone.NPM)
	}
	return &clone
}

// DidCache propagates a did-cache signal to every sub-resolver that
// memoizes proven/negative results, so stale negatives are dropped.
func (r *Resolver) DidCache() {
	if r.Redirects != nil {
		r.Redirects.DidCache()
	}
	if r.Registry != nil {
		r.Registry.Refresh()
	}
}
