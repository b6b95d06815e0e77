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

// Package specifier holds the Specifier value type: an absolute URL with a
// recognized scheme, compared byte-exact on its serialized form.
package specifier

import (
	"errors"
	"net/url"
	"strings"
)

// ErrMalformed means the input text could not be parsed as a Specifier.
var ErrMalformed = errors.New("specifier: malformed input")

// Scheme identifies the recognized top-level kind of a Specifier.
type Scheme string

const (
	SchemeFile     Scheme = "file"
	SchemeHTTP     Scheme = "http"
	SchemeHTTPS    Scheme = "https"
	SchemeData     Scheme = "data"
	SchemeNode     Scheme = "node"
	SchemeRegistry Scheme = "registry" // synthetic scheme for short references, e.g. jsr:
	SchemePM       Scheme = "pm"       // synthetic scheme for package-manager short references, e.g. npm:
	SchemeOther    Scheme = ""
)

// Specifier is a value object wrapping a parsed, absolute URL. It is never
// mutated after construction; clone by value.
type Specifier struct {
	u *url.URL
}

// Parse parses text as an absolute Specifier. The scheme is lower-cased so
// that byte-exact comparisons via String are stable regardless of source
// casing; everything else is left exactly as written.
func Parse(text string) (Specifier, error) {
	if text == "" {
		return Specifier{}, ErrMalformed
	}
	u, err := url.Parse(text)
	if err != nil {
		return Specifier{}, ErrMalformed
	}
	if u.Scheme == "" {
		return Specifier{}, ErrMalformed
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return Specifier{u: u}, nil
}

// MustParse is Parse but panics on error; for use with literal constants.
func MustParse(text string) Specifier {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// FromURL wraps an already-parsed *url.URL. The URL is cloned so the
// Specifier owns an independent copy.
func FromURL(u *url.URL) Specifier {
	if u == nil {
		return Specifier{}
	}
	clone := *u
	return Specifier{u: &clone}
}

// IsZero reports whether s is the zero Specifier.
func (s Specifier) IsZero() bool { return s.u == nil }

// Scheme returns the classified scheme of s.
func (s Specifier) Scheme() Scheme {
	if s.u == nil {
		return SchemeOther
	}
	switch strings.ToLower(s.u.Scheme) {
	case "file":
		return SchemeFile
	case "http":
		return SchemeHTTP
	case "https":
		return SchemeHTTPS
	case "data":
		return SchemeData
	case "node":
		return SchemeNode
	case "jsr":
		return SchemeRegistry
	case "npm":
		return SchemePM
	default:
		return SchemeOther
	}
}

// IsHTTP reports whether s has an http or https scheme.
func (s Specifier) IsHTTP() bool {
	sc := s.Scheme()
	return sc == SchemeHTTP || sc == SchemeHTTPS
}

// URL returns a defensive copy of the underlying *url.URL.
func (s Specifier) URL() *url.URL {
	if s.u == nil {
		return nil
	}
	clone := *s.u
	return &clone
}

// String returns the canonical serialized form used for byte-exact
// comparison (data-model invariant: "comparisons are byte-exact on the
// serialized form").
func (s Specifier) String() string {
	if s.u == nil {
		return ""
	}
	return s.u.String()
}

// Equal reports byte-exact equality of the serialized forms.
func (s Specifier) Equal(other Specifier) bool {
	return s.String() == other.String()
}

// ResolveReference resolves ref (possibly relative) against s, mirroring
// net/url.URL.ResolveReference semantics used throughout the teacher's
// workspace URL handling.
func (s Specifier) ResolveReference(ref string) (Specifier, error) {
	if s.u == nil {
		return Parse(ref)
	}
	relURL, err := url.Parse(ref)
	if err != nil {
		return Specifier{}, ErrMalformed
	}
	return Specifier{u: s.u.ResolveReference(relURL)}, nil
}

// HasSuffix reports whether the serialized specifier ends with suffix.
func (s Specifier) HasSuffix(suffix string) bool {
	return strings.HasSuffix(s.String(), suffix)
}
