package redirect

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headersWithLocation(location string) http.Header {
	h := http.Header{}
	if location != "" {
		h.Set("Location", location)
	}
	return h
}

// TestSingleHop grounds spec.md §8 scenario 1.
func TestSingleHop(t *testing.T) {
	provider := func(u string) (http.Header, bool) {
		switch u {
		case "https://foo/a.js":
			return headersWithLocation("./b.js"), true
		case "https://foo/b.js":
			return headersWithLocation(""), true
		default:
			return nil, false
		}
	}
	r := New(provider)

	dest, ok := r.Resolve("https://foo/a.js")
	require.True(t, ok)
	assert.Equal(t, "https://foo/b.js", dest)

	chain := r.Chain("https://foo/a.js")
	require.Len(t, chain, 1)
	assert.Equal(t, "https://foo/a.js", chain[0].URL)
	assert.Equal(t, "https://foo/b.js", chain[0].Entry.Target)
	assert.Equal(t, "https://foo/b.js", chain[0].Entry.Destination)
}

// TestTwoHopsRelative grounds spec.md §8 scenario 2.
func TestTwoHopsRelative(t *testing.T) {
	provider := func(u string) (http.Header, bool) {
		switch u {
		case "https://foo/redirect_2.js":
			return headersWithLocation("./redirect_1.js"), true
		case "https://foo/redirect_1.js":
			return headersWithLocation("./file.js"), true
		case "https://foo/file.js":
			return headersWithLocation(""), true
		default:
			return nil, false
		}
	}
	r := New(provider)

	dest, ok := r.Resolve("https://foo/redirect_2.js")
	require.True(t, ok)
	assert.Equal(t, "https://foo/file.js", dest)

	chain := r.Chain("https://foo/redirect_2.js")
	require.Len(t, chain, 2)
	for _, hop := range chain {
		assert.Equal(t, "https://foo/file.js", hop.Entry.Destination)
	}
}

// TestUnknownURL grounds spec.md §8 scenario 3.
func TestUnknownURL(t *testing.T) {
	provider := func(u string) (http.Header, bool) {
		return nil, false
	}
	r := New(provider)

	_, ok := r.Resolve("https://foo/unknown")
	assert.False(t, ok)
	assert.Empty(t, r.Chain("https://foo/unknown"))
}

// TestLockfileSeeding grounds spec.md §8 scenario 4: the header provider
// must never be consulted once a lockfile has seeded the chain.
func TestLockfileSeeding(t *testing.T) {
	called := false
	provider := func(u string) (http.Header, bool) {
		called = true
		return nil, false
	}
	r := NewSeeded(provider, LockfileRedirects{
		"https://x/a": "https://x/b",
	})

	dest, ok := r.Resolve("https://x/a")
	require.True(t, ok)
	assert.Equal(t, "https://x/b", dest)

	dest, ok = r.Resolve("https://x/b")
	require.True(t, ok)
	assert.Equal(t, "https://x/b", dest)

	assert.False(t, called)
}

// TestSchemePassthrough grounds the scheme-passthrough invariant.
func TestSchemePassthrough(t *testing.T) {
	r := New(func(string) (http.Header, bool) { return nil, false })

	dest, ok := r.Resolve("file:///a/b.ts")
	require.True(t, ok)
	assert.Equal(t, "file:///a/b.ts", dest)
}

// TestCycleSafety grounds the cycle-safety invariant: a header provider
// whose graph loops must cause resolve to terminate and return none.
func TestCycleSafety(t *testing.T) {
	provider := func(u string) (http.Header, bool) {
		switch u {
		case "https://foo/a.js":
			return headersWithLocation("./b.js"), true
		case "https://foo/b.js":
			return headersWithLocation("./a.js"), true
		default:
			return nil, false
		}
	}
	r := New(provider)

	_, ok := r.Resolve("https://foo/a.js")
	assert.False(t, ok)
}

// TestHopLimit grounds the hop-limit invariant: overflow leaves no entries
// behind for the overflowing chain.
func TestHopLimit(t *testing.T) {
	provider := func(u string) (http.Header, bool) {
		// Each hop N redirects to hop N+1, twelve times, never terminating.
		for i := 0; i < 12; i++ {
			from := hopURL(i)
			to := hopURL(i + 1)
			if u == from {
				return headersWithLocation(to), true
			}
		}
		return headersWithLocation(""), true
	}
	r := New(provider)

	_, ok := r.Resolve(hopURL(0))
	assert.False(t, ok)
}

func hopURL(n int) string {
	return "https://foo/hop" + string(rune('0'+n)) + ".js"
}

// TestIdempotence grounds the idempotence invariant for resolve.
func TestIdempotence(t *testing.T) {
	provider := func(u string) (http.Header, bool) {
		if u == "https://foo/a.js" {
			return headersWithLocation("./b.js"), true
		}
		return headersWithLocation(""), true
	}
	r := New(provider)

	first, ok := r.Resolve("https://foo/a.js")
	require.True(t, ok)
	second, ok := r.Resolve(first)
	require.True(t, ok)
	assert.Equal(t, first, second)
}
