package wire

import (
	"fmt"
	"math"
	"net"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/types"
)

const peerRecordFields = 4

// PeerInitializer builds the peer for a decoded record. Returning nil
// rejects the record.
type PeerInitializer func(identifier string, address net.IP, port uint16) *types.Peer

// Codec converts peers to and from their wire representation. It holds no
// mutable state and is safe for concurrent use.
type Codec struct {
	logger   log.Logger
	initPeer PeerInitializer
}

// NewCodec returns a codec that builds decoded peers with initPeer, or with
// types.NewPeer when initPeer is nil.
func NewCodec(logger log.Logger, initPeer PeerInitializer) *Codec {
	if initPeer == nil {
		initPeer = types.NewPeer
	}
	return &Codec{
		logger:   logger,
		initPeer: initPeer,
	}
}

// Encode serializes the peer's address, port, identifier and capabilities.
func (c *Codec) Encode(peer *types.Peer) ([]byte, error) {
	addr, err := addressBytes(peer.Address)
	if err != nil {
		return nil, err
	}

	caps, err := EncodeCapabilities(peer.Capabilities())
	if err != nil {
		return nil, err
	}

	return rlp.EncodeToBytes([]interface{}{
		addr,
		uint64(peer.Port),
		[]byte(peer.Identifier),
		rlp.RawValue(caps),
	})
}

// Decode parses a peer record and hands its fields to the peer initializer.
func (c *Codec) Decode(raw []byte) (*types.Peer, error) {
	content, rest, err := rlp.SplitList(raw)
	if err != nil {
		return nil, decodeErr("peer record", err)
	}
	if len(rest) != 0 {
		return nil, decodeErr(fmt.Sprintf("%d trailing bytes after peer record", len(rest)), nil)
	}

	n, err := rlp.CountValues(content)
	if err != nil {
		return nil, decodeErr("peer record", err)
	}
	if n != peerRecordFields {
		return nil, decodeErr(fmt.Sprintf("peer record has %d fields, want %d", n, peerRecordFields), nil)
	}

	addr, content, err := rlp.SplitString(content)
	if err != nil {
		return nil, decodeErr("address", err)
	}
	port, content, err := rlp.SplitUint64(content)
	if err != nil {
		return nil, decodeErr("port", err)
	}
	if port > math.MaxUint16 {
		return nil, decodeErr(fmt.Sprintf("port %d out of range", port), nil)
	}
	id, capsRaw, err := rlp.SplitString(content)
	if err != nil {
		return nil, decodeErr("identifier", err)
	}
	if !utf8.Valid(id) {
		return nil, decodeErr("identifier is not valid UTF-8", nil)
	}

	caps, err := DecodeCapabilities(capsRaw)
	if err != nil {
		return nil, err
	}

	ip, err := hostAddress(addr)
	if err != nil {
		c.logger.Error("invalid address; unable to decode peer", "err", err)
		return nil, decodeErr("address", err)
	}

	peer := c.initPeer(string(id), ip, uint16(port))
	if peer == nil {
		return nil, ErrPeerRejected
	}
	if err := peer.SetCapabilities(caps); err != nil {
		return nil, err
	}

	return peer, nil
}

// EncodeCapabilities serializes caps as a flat list of alternating names
// and versions.
func EncodeCapabilities(caps []types.Capability) ([]byte, error) {
	items := make([]interface{}, 0, 2*len(caps))
	for _, c := range caps {
		items = append(items, []byte(c.Name), uint64(c.Version))
	}
	return rlp.EncodeToBytes(items)
}

// DecodeCapabilities parses a list produced by EncodeCapabilities.
func DecodeCapabilities(raw []byte) ([]types.Capability, error) {
	content, rest, err := rlp.SplitList(raw)
	if err != nil {
		return nil, decodeErr("capabilities", err)
	}
	if len(rest) != 0 {
		return nil, decodeErr(fmt.Sprintf("%d trailing bytes after capabilities", len(rest)), nil)
	}

	n, err := rlp.CountValues(content)
	if err != nil {
		return nil, decodeErr("capabilities", err)
	}
	if n%2 != 0 {
		return nil, decodeErr(fmt.Sprintf("capability list has odd length %d", n), nil)
	}

	caps := make([]types.Capability, 0, n/2)
	for len(content) > 0 {
		var (
			name    []byte
			version uint64
		)
		if name, content, err = rlp.SplitString(content); err != nil {
			return nil, decodeErr("capability name", err)
		}
		if !utf8.Valid(name) {
			return nil, decodeErr("capability name is not valid UTF-8", nil)
		}
		if version, content, err = rlp.SplitUint64(content); err != nil {
			return nil, decodeErr("capability version", err)
		}
		if version > math.MaxUint8 {
			return nil, decodeErr(fmt.Sprintf("capability %q: version %d out of range", name, version), nil)
		}

		caps = append(caps, types.Capability{Name: string(name), Version: uint8(version)})
	}

	return caps, nil
}

func addressBytes(ip net.IP) ([]byte, error) {
	if v4 := ip.To4(); v4 != nil {
		return v4, nil
	}
	if len(ip) == net.IPv6len {
		return ip, nil
	}
	return nil, HostResolutionError{Address: ip}
}

func hostAddress(b []byte) (net.IP, error) {
	switch len(b) {
	case net.IPv4len, net.IPv6len:
		return net.IP(append([]byte(nil), b...)), nil
	default:
		return nil, HostResolutionError{Address: b}
	}
}
