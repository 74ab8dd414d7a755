package acl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeio/zkstore/acl"
)

func TestCacheInternsIdenticalLists(t *testing.T) {
	c := acl.NewCache()
	h1 := c.Convert(acl.WorldACL(acl.PermAll))
	h2 := c.Convert(acl.WorldACL(acl.PermAll))
	require.Equal(t, h1, h2)
	require.EqualValues(t, 2, c.RefCount(h1))
}

func TestCacheDistinctListsGetDistinctHandles(t *testing.T) {
	c := acl.NewCache()
	h1 := c.Convert(acl.WorldACL(acl.PermAll))
	h2 := c.Convert(acl.WorldACL(acl.PermRead))
	require.NotEqual(t, h1, h2)
}

func TestCacheOrderSignificant(t *testing.T) {
	c := acl.NewCache()
	a := acl.List{{Perms: acl.PermRead, Scheme: "world", ID: "anyone"}, {Perms: acl.PermWrite, Scheme: "auth"}}
	b := acl.List{{Perms: acl.PermWrite, Scheme: "auth"}, {Perms: acl.PermRead, Scheme: "world", ID: "anyone"}}
	h1 := c.Convert(a)
	h2 := c.Convert(b)
	require.NotEqual(t, h1, h2)
}

func TestCacheLookupUnknownHandlePanics(t *testing.T) {
	c := acl.NewCache()
	require.Panics(t, func() { c.Lookup(acl.Handle(999)) })
}

func TestCacheRemoveUsageThenPurgeUnused(t *testing.T) {
	c := acl.NewCache()
	h := c.Convert(acl.WorldACL(acl.PermAll))
	c.RemoveUsage(h)
	require.EqualValues(t, 0, c.RefCount(h))

	c.PurgeUnused()
	require.Panics(t, func() { c.Lookup(h) })
}

func TestCacheSerializeDeserializeRoundTrip(t *testing.T) {
	c := acl.NewCache()
	h1 := c.Convert(acl.WorldACL(acl.PermAll))
	h2 := c.Convert(acl.AuthACL(acl.PermRead))
	c.AddUsage(h1)

	entries := c.Serialize()
	require.Len(t, entries, 2)

	c2 := acl.NewCache()
	c2.Deserialize(entries)
	require.Equal(t, acl.WorldACL(acl.PermAll), c2.Lookup(h1))
	require.Equal(t, acl.AuthACL(acl.PermRead), c2.Lookup(h2))
	require.EqualValues(t, 0, c2.RefCount(h1), "deserialize resets refcounts; callers re-derive them via AddUsage")
}
