package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetworkMembershipIsExclusive(t *testing.T) {
	n := NewNetwork("net-1", NetworkStatusUnlinked)

	assert.True(t, n.AddUnconfirmed("a"))
	assert.True(t, n.IsUnconfirmed("a"))
	assert.False(t, n.IsConfirmed("a"))

	n.Confirm("a")
	assert.True(t, n.IsConfirmed("a"))
	assert.False(t, n.IsUnconfirmed("a"))

	// a confirmed peer is never demoted
	assert.False(t, n.AddUnconfirmed("a"))
	assert.False(t, n.IsUnconfirmed("a"))

	n.AddUnconfirmed("b")
	assert.Equal(t, []string{"a"}, n.ConfirmedPeers())
	assert.Equal(t, []string{"b"}, n.UnconfirmedPeers())
	assert.Equal(t, []string{"a", "b"}, n.Peers())

	n.Remove("a")
	assert.Empty(t, n.ConfirmedPeers())
	assert.Equal(t, []string{"b"}, n.Peers())
}

func TestNetworkStatus(t *testing.T) {
	n := NewNetwork("net-1", NetworkStatusUnlinked)
	assert.Equal(t, NetworkStatusUnlinked, n.Status())
	assert.Equal(t, "UNLINKED", n.Status().String())

	n.SetStatus(NetworkStatusLinked)
	assert.Equal(t, "LINKED", n.Status().String())
}
