package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationDefaultDeny(t *testing.T) {
	a := NewAuthorization()
	assert.False(t, a.IsAuthorized("eth_getBalance", "node1"))
	assert.Len(t, a.AuthorizedNodes("eth_getBalance"), 0)
	assert.Len(t, a.Methods(), 0)
}

func TestAllowNodeForMethod(t *testing.T) {
	t.Run("union in insertion order", func(t *testing.T) {
		a := NewAuthorization()
		added, err := a.AllowNodeForMethod("eth_getBalance", []string{"node1", "node2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"node1", "node2"}, added)

		added, err = a.AllowNodeForMethod("eth_getBalance", []string{"node3", "node1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"node3"}, added)

		assert.Equal(t, []string{"node1", "node2", "node3"}, a.AuthorizedNodes("eth_getBalance"))
		assert.True(t, a.IsAuthorized("eth_getBalance", "node3"))
	})

	t.Run("duplicates within one call", func(t *testing.T) {
		a := NewAuthorization()
		added, err := a.AllowNodeForMethod("m", []string{"x", "x", "y"})
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, added)
	})

	t.Run("method names are case-sensitive", func(t *testing.T) {
		a := NewAuthorization()
		_, err := a.AllowNodeForMethod("eth_getBalance", []string{"node1"})
		require.NoError(t, err)
		assert.False(t, a.IsAuthorized("ETH_GETBALANCE", "node1"))
	})

	t.Run("unregistered addresses are accepted", func(t *testing.T) {
		a := NewAuthorization()
		_, err := a.AllowNodeForMethod("m", []string{"nobody"})
		require.NoError(t, err)
		assert.True(t, a.IsAuthorized("m", "nobody"))
	})

	t.Run("invalid input changes nothing", func(t *testing.T) {
		a := NewAuthorization()
		_, err := a.AllowNodeForMethod("", []string{"x"})
		assert.Equal(t, ErrInvalidMethod, err)
		_, err = a.AllowNodeForMethod("m", []string{"x", ""})
		assert.Equal(t, ErrInvalidAddress, err)
		assert.False(t, a.IsAuthorized("m", "x"))
		assert.Len(t, a.Methods(), 0)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		a := NewAuthorization()
		_, _ = a.AllowNodeForMethod("m", []string{"x"})
		nodes := a.AuthorizedNodes("m")
		nodes[0] = "changed"
		assert.Equal(t, []string{"x"}, a.AuthorizedNodes("m"))
	})
}

func TestPreviewAllowDoesNotChangeState(t *testing.T) {
	a := NewAuthorization()
	_, _ = a.AllowNodeForMethod("m", []string{"x"})
	all, err := a.PreviewAllow("m", []string{"y", "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, all)
	assert.Equal(t, []string{"x"}, a.AuthorizedNodes("m"))
}

func TestMethodsAndSnapshot(t *testing.T) {
	a := NewAuthorization()
	_, _ = a.AllowNodeForMethod("eth_gasPrice", []string{"b"})
	_, _ = a.AllowNodeForMethod("eth_call", []string{"a", "b"})
	assert.Equal(t, []string{"eth_call", "eth_gasPrice"}, a.Methods())
	assert.Equal(t, map[string][]string{"eth_call": {"a", "b"}, "eth_gasPrice": {"b"}}, a.Snapshot())
}
