package quota_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeio/zkstore/quota"
)

func TestFindMaxPrefix(t *testing.T) {
	tr := quota.New()
	tr.AddPath("/a")
	tr.AddPath("/a/b")

	require.Equal(t, "/a/b", tr.FindMaxPrefix("/a/b/c"))
	require.Equal(t, "/a", tr.FindMaxPrefix("/a/x"))
	require.Equal(t, "", tr.FindMaxPrefix("/z"))
}

func TestSegmentGranularity(t *testing.T) {
	tr := quota.New()
	tr.AddPath("/ab")
	require.Equal(t, "", tr.FindMaxPrefix("/abc"), "prefix match must be segment-aligned, not a raw string prefix")
}

func TestDeletePathPrunesEmptyChain(t *testing.T) {
	tr := quota.New()
	tr.AddPath("/a/b/c")
	tr.DeletePath("/a/b/c")
	require.False(t, tr.Contains("/a/b/c"))
	require.Equal(t, "", tr.FindMaxPrefix("/a/b/c/d"))
}

func TestDeletePathKeepsMarkedAncestor(t *testing.T) {
	tr := quota.New()
	tr.AddPath("/a")
	tr.AddPath("/a/b")
	tr.DeletePath("/a/b")
	require.True(t, tr.Contains("/a"))
	require.Equal(t, "/a", tr.FindMaxPrefix("/a/b"))
}

func TestDeleteUnknownPathIsNoop(t *testing.T) {
	tr := quota.New()
	tr.DeletePath("/never/added")
}

func TestContains(t *testing.T) {
	tr := quota.New()
	tr.AddPath("/a/b")
	require.True(t, tr.Contains("/a/b"))
	require.False(t, tr.Contains("/a"))
}
