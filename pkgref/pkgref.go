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

// Package pkgref parses short package references of the registry (JSR-like)
// and package-manager (NPM-like) flavors, following the "npm:"/"jsr:" prefix
// convention the teacher repo already recognizes in cmd/config.IsPackageSpecifier.
package pkgref

import (
	"errors"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrMalformed is returned when a short reference cannot be parsed.
var ErrMalformed = errors.New("pkgref: malformed package reference")

// Flavor distinguishes the two short-reference families named in the spec's
// glossary.
type Flavor int

const (
	FlavorRegistry Flavor = iota // jsr:-style
	FlavorPM                     // npm:-style
)

// RegistryPrefix and PMPrefix are the synthetic scheme prefixes recognized
// on a bare specifier text, mirroring config.IsPackageSpecifier's "npm:"
// check generalized to both flavors.
const (
	RegistryPrefix = "jsr:"
	PMPrefix       = "npm:"
)

// Reference is a parsed short reference: a package name, an optional version
// range, and an optional sub-path.
type Reference struct {
	Flavor  Flavor
	Scope   string // e.g. "@scope" without the trailing slash, empty if unscoped
	Name    string // package name without scope prefix
	Range   string // version range text, empty if unconstrained
	SubPath string // sub-path after the package name, empty if none
}

// FullName returns the scoped package name, e.g. "@scope/name" or "name".
func (r Reference) FullName() string {
	if r.Scope == "" {
		return r.Name
	}
	return r.Scope + "/" + r.Name
}

// String reconstructs the canonical short-reference text.
func (r Reference) String() string {
	var b strings.Builder
	switch r.Flavor {
	case FlavorRegistry:
		b.WriteString(RegistryPrefix)
	default:
		b.WriteString(PMPrefix)
	}
	b.WriteString(r.FullName())
	if r.Range != "" {
		b.WriteByte('@')
		b.WriteString(r.Range)
	}
	if r.SubPath != "" {
		b.WriteByte('/')
		b.WriteString(strings.TrimPrefix(r.SubPath, "/"))
	}
	return b.String()
}

// IsShortReference reports whether text carries one of the recognized
// synthetic scheme prefixes, without fully parsing it. This is the
// generalized form of config.IsPackageSpecifier.
func IsShortReference(text string) bool {
	return strings.HasPrefix(text, RegistryPrefix) || strings.HasPrefix(text, PMPrefix)
}

// Parse parses text as a short reference. text must begin with "jsr:" or
// "npm:"; anything else is ErrMalformed.
func Parse(text string) (Reference, error) {
	var flavor Flavor
	var rest string
	switch {
	case strings.HasPrefix(text, RegistryPrefix):
		flavor = FlavorRegistry
		rest = text[len(RegistryPrefix):]
	case strings.HasPrefix(text, PMPrefix):
		flavor = FlavorPM
		rest = text[len(PMPrefix):]
	default:
		return Reference{}, ErrMalformed
	}
	if rest == "" {
		return Reference{}, ErrMalformed
	}

	var scope string
	if strings.HasPrefix(rest, "@") {
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return Reference{}, ErrMalformed
		}
		scope = rest[:slash]
		rest = rest[slash+1:]
	}

	// Split off the sub-path at the first "/" remaining after the name@range.
	name := rest
	subPath := ""
	if slash := strings.Index(rest, "/"); slash >= 0 {
		name = rest[:slash]
		subPath = rest[slash+1:]
	}

	rangeText := ""
	if at := strings.LastIndex(name, "@"); at > 0 {
		rangeText = name[at+1:]
		name = name[:at]
	}
	if name == "" {
		return Reference{}, ErrMalformed
	}

	return Reference{
		Flavor:  flavor,
		Scope:   scope,
		Name:    name,
		Range:   rangeText,
		SubPath: subPath,
	}, nil
}

// Version is a concrete (name, version) pair produced by registry lookup.
type Version struct {
	Name    string
	Version string
}

// String reconstructs "name@version".
func (v Version) String() string {
	return v.Name + "@" + v.Version
}

// Satisfies reports whether v.Version satisfies the semver range attached to
// req, following the "req.name@range" round-trip law of spec.md §8. An empty
// range is satisfied by any version.
func (req Reference) Satisfies(v Version) bool {
	if req.FullName() != v.Name {
		return false
	}
	if req.Range == "" {
		return true
	}
	canonical := v.Version
	if !strings.HasPrefix(canonical, "v") {
		canonical = "v" + canonical
	}
	if !semver.IsValid(canonical) {
		// Non-semver versions (e.g. registry tags) pass through as exact match.
		return req.Range == v.Version
	}
	wantRange := req.Range
	if !strings.HasPrefix(wantRange, "v") {
		wantRange = "v" + wantRange
	}
	if semver.IsValid(wantRange) {
		return semver.Compare(canonical, wantRange) == 0
	}
	// A caret/tilde/range expression we don't special-case: fall back to a
	// prefix match on the major version, consistent with how short-lived
	// LSP resolution tolerates loose ranges rather than rejecting them.
	return strings.HasPrefix(strings.TrimLeft(req.Range, "^~"), strings.TrimPrefix(semver.Major(canonical), "v"))
}
