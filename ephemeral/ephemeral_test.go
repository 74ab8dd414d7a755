package ephemeral_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeio/zkstore/ephemeral"
)

func TestTypeOf(t *testing.T) {
	require.Equal(t, ephemeral.Void, ephemeral.TypeOf(0))
	require.Equal(t, ephemeral.Normal, ephemeral.TypeOf(42))
	require.Equal(t, ephemeral.Container, ephemeral.TypeOf(ephemeral.ContainerEphemeralOwner))
	require.Equal(t, ephemeral.TTL, ephemeral.TypeOf(ephemeral.PackTTL(5000)))
}

func TestPackUnpackTTL(t *testing.T) {
	owner := ephemeral.PackTTL(123456)
	require.Equal(t, ephemeral.TTL, ephemeral.TypeOf(owner))
	require.EqualValues(t, 123456, ephemeral.UnpackTTL(owner))
}

func TestIsEphemeral(t *testing.T) {
	require.False(t, ephemeral.IsEphemeral(0))
	require.True(t, ephemeral.IsEphemeral(42))
	require.True(t, ephemeral.IsEphemeral(ephemeral.ContainerEphemeralOwner))
	require.True(t, ephemeral.IsEphemeral(ephemeral.PackTTL(1)))
}

func TestSessionOwner(t *testing.T) {
	sid, ok := ephemeral.SessionOwner(42)
	require.True(t, ok)
	require.EqualValues(t, 42, sid)

	_, ok = ephemeral.SessionOwner(0)
	require.False(t, ok)

	_, ok = ephemeral.SessionOwner(ephemeral.ContainerEphemeralOwner)
	require.False(t, ok)

	_, ok = ephemeral.SessionOwner(ephemeral.PackTTL(1))
	require.False(t, ok)
}
