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

// Package redirect implements the L0 Redirect Resolver: lazy HTTP redirect
// chain memoization with lockfile seeding and cycle detection.
package redirect

import (
	"net/http"
	"net/url"
	"sync"

	"bennypowers.dev/specresolve/specifier"
)

// maxHops is the hop-count ceiling past which a chain is treated as
// non-terminating (invariant 3 of the data model).
const maxHops = 10

// Entry is the memoized record for one hop of a redirect chain. Headers is
// never mutated after insert.
type Entry struct {
	Headers     http.Header
	Target      string
	Destination string
}

// HeaderProvider is the sole side-effecting collaborator: a pure function
// from URL text to the response headers observed there. Returning ok=false
// means the provider cannot serve the URL, which terminates the walk with
// failure.
type HeaderProvider func(u string) (headers http.Header, ok bool)

// slot is the table's value type. A nil entry marks a proven terminal URL
// (no redirect); a non-nil entry records an observed redirect hop.
type slot struct {
	entry *Entry
}

// Resolver is the Redirect Resolver. It is safe for concurrent use; the
// underlying table tolerates concurrent inserts of the same key racing
// harmlessly because both writers compute identical values (Design Note §9).
type Resolver struct {
	provider HeaderProvider
	entries  sync.Map // string -> *slot
}

// New constructs a Resolver backed by provider, with no seeded entries.
func New(provider HeaderProvider) *Resolver {
	return &Resolver{provider: provider}
}

// LockfileRedirects maps source URL text to destination URL text, as read
// from a lockfile's "redirects" section.
type LockfileRedirects map[string]string

// NewSeeded constructs a Resolver and seeds it from a lockfile's redirects
// section: each entry inserts a redirect record for the source (pointing at
// the destination) and a terminal marker for the destination. Invalid URLs
// are silently dropped, per spec.
func NewSeeded(provider HeaderProvider, lockfileRedirects LockfileRedirects) *Resolver {
	r := New(provider)
	for source, destination := range lockfileRedirects {
		if _, err := url.Parse(source); err != nil {
			continue
		}
		if _, err := url.Parse(destination); err != nil {
			continue
		}
		r.entries.Store(source, &slot{entry: &Entry{
			Target:      destination,
			Destination: destination,
		}})
		r.entries.Store(destination, &slot{})
	}
	return r
}

// Resolve walks the memoized table to the terminus of u's redirect chain.
// Non-HTTP(S) URLs pass through unchanged. Returns ok=false when resolution
// fails (unknown URL, cycle, or hop-limit overflow); in that case no
// entries are memoized for the overflowing chain.
func (r *Resolver) Resolve(u string) (destination string, ok bool) {
	spec, err := specifier.Parse(u)
	if err != nil || !spec.IsHTTP() {
		return u, true
	}

	type pending struct {
		url    string
		target string
		hdrs   http.Header
	}
	var chain []pending
	current := u
	seen := map[string]bool{}

	for {
		if v, loaded := r.entries.Load(current); loaded {
			s := v.(*slot)
			if s.entry != nil {
				destination = s.entry.Destination
			} else {
				destination = current
			}
			break
		}
		if seen[current] {
			// Cycle safety: resolution terminates and returns none.
			return "", false
		}
		seen[current] = true

		headers, provided := r.provider(current)
		if !provided {
			return "", false
		}
		location := headers.Get("Location")
		if location == "" {
			r.entries.Store(current, &slot{})
			destination = current
			break
		}
		if len(chain) >= maxHops {
			// Hop limit exceeded: leave no entries behind for this chain.
			return "", false
		}
		target, rerr := resolveRelative(current, location)
		if rerr != nil {
			return "", false
		}
		chain = append(chain, pending{url: current, target: target, hdrs: headers})
		current = target
	}

	for _, p := range chain {
		r.entries.Store(p.url, &slot{entry: &Entry{
			Headers:     p.hdrs,
			Target:      p.target,
			Destination: destination,
		}})
	}
	return destination, true
}

func resolveRelative(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// ChainHop pairs a visited URL with the redirect entry recorded for it.
type ChainHop struct {
	URL   string
	Entry Entry
}

// Chain resolves u, then returns the ordered list of redirect hops visited,
// stopping before the terminal entry (spec.md §8 scenario 1 and 2).
func (r *Resolver) Chain(u string) []ChainHop {
	r.Resolve(u)

	var result []ChainHop
	seen := map[string]bool{}
	current := u
	for {
		v, loaded := r.entries.Load(current)
		if !loaded {
			break
		}
		s := v.(*slot)
		if s.entry == nil {
			break
		}
		result = append(result, ChainHop{URL: current, Entry: *s.entry})
		seen[current] = true
		if seen[s.entry.Target] {
			break
		}
		current = s.entry.Target
	}
	return result
}

// DidCache notifies the resolver that an upstream cache was refreshed.
// Entries are retained only if proven (terminal or a known redirect);
// in-flight placeholders are dropped so future queries re-probe via the
// header provider rather than trusting stale negatives.
//
// The current implementation never stores a placeholder distinct from a
// proven entry, so this is a no-op retained for interface parity with the
// original resolver's did_cache hook; it exists so callers (the Scope
// Resolver's did_cache propagation) have a stable target regardless of how
// the table is populated internally.
func (r *Resolver) DidCache() {
	r.entries.Range(func(key, value any) bool {
		return true
	})
}
