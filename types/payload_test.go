package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadTypeNames(t *testing.T) {
	for _, pt := range PayloadTypes() {
		got, ok := ParsePayloadType(pt.String())
		require.True(t, ok, pt.String())
		assert.Equal(t, pt, got)
	}

	_, ok := ParsePayloadType("GOSSIP")
	assert.False(t, ok)
	assert.Equal(t, "UNKNOWN(0)", PayloadTypeUnknown.String())
}

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage("NETWORK_STATE 42\n")
	require.NoError(t, err)
	assert.Equal(t, PayloadTypeNetworkState, msg.Type)
	assert.Equal(t, []string{"NETWORK_STATE", "42"}, msg.Parts)

	arg, err := msg.Arg(1)
	require.NoError(t, err)
	assert.Equal(t, "42", arg)

	_, err = msg.Arg(2)
	require.Error(t, err)

	msg, err = ParseMessage("GOSSIP hello")
	require.NoError(t, err)
	assert.Equal(t, PayloadTypeUnknown, msg.Type)
	assert.Equal(t, "GOSSIP", msg.Tag())

	_, err = ParseMessage("  \r\n")
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestNewMessageString(t *testing.T) {
	msg := NewMessage(PayloadTypeLinkNetwork, "net-1")
	assert.Equal(t, "LINK_NETWORK net-1", msg.String())

	parsed, err := ParseMessage(msg.String())
	require.NoError(t, err)
	assert.Equal(t, msg, parsed)
}
