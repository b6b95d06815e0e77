package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScopeRouting grounds spec.md §8 scenario 6.
func TestScopeRouting(t *testing.T) {
	unscoped := &Resolver{Root: ""}
	outer := &Resolver{Root: "file:///a/", Membership: PrefixMembership{Root: "file:///a/"}}
	sub := &Resolver{Root: "file:///a/sub/", Membership: PrefixMembership{Root: "file:///a/sub/"}}

	router := NewRouter(unscoped)
	router.Add(outer.Root, outer)
	router.Add(sub.Root, sub)

	subReferrer := "file:///a/sub/x.ts"
	require.Same(t, sub, router.Route(&subReferrer))

	outerReferrer := "file:///a/y.ts"
	require.Same(t, outer, router.Route(&outerReferrer))

	require.Same(t, unscoped, router.Route(nil))
}

// TestScopeRoutingStability grounds the "scope routing stability" invariant:
// routing is deterministic across repeated calls.
func TestScopeRoutingStability(t *testing.T) {
	unscoped := &Resolver{Root: ""}
	a := &Resolver{Root: "file:///a/", Membership: PrefixMembership{Root: "file:///a/"}}
	router := NewRouter(unscoped)
	router.Add(a.Root, a)

	referrer := "file:///a/x.ts"
	first := router.Route(&referrer)
	second := router.Route(&referrer)
	assert.Same(t, first, second)
}
