package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPeerCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := MakePeerCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPeerEncode(t *testing.T) {
	out, err := runPeerCommand(t, "encode", "--address", "127.0.0.1", "--port", "30303", "--id", "a", "--cap", "smilo/1")
	require.NoError(t, err)
	assert.Equal(t, "d1847f00000182765f61c785736d696c6f01\n", out)
}

func TestPeerEncodeInvalid(t *testing.T) {
	_, err := runPeerCommand(t, "encode", "--address", "localhost")
	require.Error(t, err)

	_, err = runPeerCommand(t, "encode", "--cap", "smilo")
	require.Error(t, err)
}

func TestPeerDecode(t *testing.T) {
	out, err := runPeerCommand(t, "decode", "0xd1847f00000182765f61c785736d696c6f01")
	require.NoError(t, err)
	assert.Contains(t, out, "identifier:   a\n")
	assert.Contains(t, out, "address:      127.0.0.1\n")
	assert.Contains(t, out, "port:         30303\n")
	assert.Contains(t, out, "capabilities: smilo/1\n")
}

func TestPeerDecodeInvalid(t *testing.T) {
	_, err := runPeerCommand(t, "decode", "zz")
	require.Error(t, err)

	// five byte address
	_, err = runPeerCommand(t, "decode", "cb857f0000000182765f61c0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unusable address")
}
