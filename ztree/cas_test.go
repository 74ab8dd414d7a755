package ztree_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeio/zkstore/ztree"
)

func TestCompareAndSetCreatesWhenAbsent(t *testing.T) {
	tree := ztree.New()
	zxid := int64(0)
	next := func() int64 { zxid++; return zxid }

	err := tree.CompareAndSet("/counter", func(old []byte, _ ztree.Stat, existed bool) ([]byte, error) {
		require.False(t, existed)
		return []byte("1"), nil
	}, next, 1000)
	require.NoError(t, err)

	data, _, err := tree.GetData("/counter", nil)
	require.NoError(t, err)
	require.Equal(t, []byte("1"), data)
}

func TestCompareAndSetUpdatesExisting(t *testing.T) {
	tree := ztree.New()
	zxid := int64(0)
	next := func() int64 { zxid++; return zxid }

	require.NoError(t, tree.CompareAndSet("/counter", func(old []byte, _ ztree.Stat, existed bool) ([]byte, error) {
		return []byte("1"), nil
	}, next, 1000))

	require.NoError(t, tree.CompareAndSet("/counter", func(old []byte, _ ztree.Stat, existed bool) ([]byte, error) {
		require.True(t, existed)
		require.Equal(t, []byte("1"), old)
		return []byte("2"), nil
	}, next, 1001))

	data, stat, err := tree.GetData("/counter", nil)
	require.NoError(t, err)
	require.Equal(t, []byte("2"), data)
	require.EqualValues(t, 1, stat.Version)
}
