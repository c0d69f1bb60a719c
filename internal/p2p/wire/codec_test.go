package wire_test

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/smilo-platform/smilo-sync/internal/p2p/wire"
	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/types"
)

func newCodec(t *testing.T) *wire.Codec {
	t.Helper()
	return wire.NewCodec(log.TestingLogger(), nil)
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	bz, err := hex.DecodeString(s)
	require.NoError(t, err)
	return bz
}

func makePeer(t *testing.T, id string, ip net.IP, port uint16, caps ...types.Capability) *types.Peer {
	t.Helper()
	p := types.NewPeer(id, ip, port)
	require.NoError(t, p.SetCapabilities(caps))
	return p
}

func requireDecodeError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var decErr wire.DecodeError
	require.True(t, errors.As(err, &decErr), "expected DecodeError, got %T: %v", err, err)
}

func TestEncodeKnownVector(t *testing.T) {
	codec := newCodec(t)
	peer := makePeer(t, "a", net.IPv4(127, 0, 0, 1), 30303, types.Capability{Name: "smilo", Version: 1})

	bz, err := codec.Encode(peer)
	require.NoError(t, err)
	assert.Equal(t, "d1847f00000182765f61c785736d696c6f01", hex.EncodeToString(bz))

	decoded, err := codec.Decode(bz)
	require.NoError(t, err)
	assert.True(t, peer.Equal(decoded), "want %v, got %v", peer, decoded)
	assert.Len(t, decoded.Address, net.IPv4len)
}

func TestRoundTrip(t *testing.T) {
	codec := newCodec(t)

	testCases := map[string]*types.Peer{
		"empty identifier and capabilities": makePeer(t, "", net.IPv4(10, 1, 2, 3), 0),
		"ipv6": makePeer(t, "node-ü", net.ParseIP("2001:db8::1"), 65535,
			types.Capability{Name: "smilo", Version: 0},
			types.Capability{Name: "sync", Version: 255},
		),
		"many capabilities": makePeer(t, "node-2", net.IPv4(192, 168, 0, 1), 443,
			types.Capability{Name: "a", Version: 1},
			types.Capability{Name: "b", Version: 127},
			types.Capability{Name: "c", Version: 128},
			types.Capability{Name: "", Version: 2},
		),
	}

	for name, peer := range testCases {
		peer := peer
		t.Run(name, func(t *testing.T) {
			bz, err := codec.Encode(peer)
			require.NoError(t, err)

			decoded, err := codec.Decode(bz)
			require.NoError(t, err)
			require.True(t, peer.Equal(decoded), "want %v, got %v", peer, decoded)
			require.Equal(t, peer.Capabilities(), decoded.Capabilities())
		})
	}
}

func TestRoundTripProperty(t *testing.T) {
	codec := wire.NewCodec(log.NewNopLogger(), nil)

	rapid.Check(t, func(t *rapid.T) {
		addrLen := rapid.SampledFrom([]int{net.IPv4len, net.IPv6len}).Draw(t, "addrLen").(int)
		addr := rapid.SliceOfN(rapid.Byte(), addrLen, addrLen).Draw(t, "addr").([]byte)
		port := rapid.Uint16().Draw(t, "port").(uint16)
		id := rapid.String().Draw(t, "id").(string)

		n := rapid.IntRange(0, 8).Draw(t, "caps").(int)
		caps := make([]types.Capability, 0, n)
		for i := 0; i < n; i++ {
			caps = append(caps, types.Capability{
				Name:    rapid.String().Draw(t, "capName").(string),
				Version: rapid.Uint8().Draw(t, "capVersion").(uint8),
			})
		}

		peer := types.NewPeer(id, net.IP(addr), port)
		if err := peer.SetCapabilities(caps); err != nil {
			t.Fatal(err)
		}

		bz, err := codec.Encode(peer)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := codec.Decode(bz)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !peer.Equal(decoded) {
			t.Fatalf("round trip mismatch: want %v, got %v", peer, decoded)
		}
	})
}

func TestCapabilitiesRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 32).Draw(t, "n").(int)
		caps := make([]types.Capability, n)
		for i := range caps {
			caps[i] = types.Capability{
				Name:    rapid.String().Draw(t, "name").(string),
				Version: rapid.Uint8().Draw(t, "version").(uint8),
			}
		}

		bz, err := wire.EncodeCapabilities(caps)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := wire.DecodeCapabilities(bz)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(decoded) != n {
			t.Fatalf("decoded %d capabilities, want %d", len(decoded), n)
		}
		for i := range caps {
			if caps[i] != decoded[i] {
				t.Fatalf("capability %d: want %v, got %v", i, caps[i], decoded[i])
			}
		}
	})
}

func TestDecodeCapabilitiesOddLength(t *testing.T) {
	// ["smilo", 1, "sync"]
	_, err := wire.DecodeCapabilities(mustHex(t, "cc85736d696c6f018473796e63"))
	requireDecodeError(t, err)

	// ["a"]
	_, err = wire.DecodeCapabilities(mustHex(t, "c161"))
	requireDecodeError(t, err)

	caps, err := wire.DecodeCapabilities(mustHex(t, "c0"))
	require.NoError(t, err)
	require.Empty(t, caps)
}

func TestDecodeCapabilitiesInvalidVersion(t *testing.T) {
	// ["a", 256]
	_, err := wire.DecodeCapabilities(mustHex(t, "c461820100"))
	requireDecodeError(t, err)

	// ["a", ["nested"]]
	_, err = wire.DecodeCapabilities(mustHex(t, "c361c180"))
	requireDecodeError(t, err)
}

func TestDecodeErrors(t *testing.T) {
	codec := newCodec(t)

	valid, err := codec.Encode(makePeer(t, "a", net.IPv4(127, 0, 0, 1), 30303))
	require.NoError(t, err)

	testCases := map[string][]byte{
		"empty input":     {},
		"not a list":      mustHex(t, "83616263"),
		"three fields":    mustHex(t, "c9847f00000182765f61"),
		"five fields":     mustHex(t, "cb847f00000182765f61c0c0"),
		"truncated":       valid[:len(valid)-1],
		"trailing bytes":  append(append([]byte{}, valid...), 0x00),
		"oversized port":  mustHex(t, "cb847f0000018301000061c0"),
		"invalid utf8 id": mustHex(t, "cb847f00000182765f81ffc0"),
		"odd caps":        mustHex(t, "cb847f00000182765f61c161"),
	}

	for name, raw := range testCases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			peer, err := codec.Decode(raw)
			requireDecodeError(t, err)
			require.Nil(t, peer)
		})
	}
}

func TestDecodeInvalidAddressLength(t *testing.T) {
	codec := newCodec(t)

	// [0x7f00000001 (5 bytes), 30303, "a", []]
	raw := mustHex(t, "cb857f0000000182765f61c0")
	peer, err := codec.Decode(raw)
	require.Nil(t, peer)
	requireDecodeError(t, err)

	var hostErr wire.HostResolutionError
	require.True(t, errors.As(err, &hostErr))
	require.Len(t, hostErr.Address, 5)
}

func TestDecodeRejectedByInitializer(t *testing.T) {
	codec := wire.NewCodec(log.TestingLogger(), func(id string, addr net.IP, port uint16) *types.Peer {
		if id == "self" {
			return nil
		}
		return types.NewPeer(id, addr, port)
	})

	bz, err := codec.Encode(makePeer(t, "self", net.IPv4(127, 0, 0, 1), 1))
	require.NoError(t, err)

	peer, err := codec.Decode(bz)
	require.ErrorIs(t, err, wire.ErrPeerRejected)
	require.Nil(t, peer)
}

func TestEncodeInvalidAddress(t *testing.T) {
	codec := newCodec(t)

	_, err := codec.Encode(types.NewPeer("a", net.IP{1, 2, 3}, 1))
	var hostErr wire.HostResolutionError
	require.True(t, errors.As(err, &hostErr))
}

func TestReadPeerRecord(t *testing.T) {
	codec := newCodec(t)

	bz, err := codec.Encode(makePeer(t, "node-1", net.IPv4(10, 0, 0, 1), 7000, types.Capability{Name: "smilo", Version: 1}))
	require.NoError(t, err)

	stream := bufio.NewReader(bytes.NewReader(append(append([]byte{}, bz...), []byte("PING\n")...)))

	raw, err := wire.ReadPeerRecord(stream)
	require.NoError(t, err)
	require.Equal(t, bz, raw)

	line, err := stream.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "PING\n", line)

	_, err = wire.ReadPeerRecord(bufio.NewReader(bytes.NewReader(bz[:3])))
	requireDecodeError(t, err)
}
