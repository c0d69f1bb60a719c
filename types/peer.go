package types

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrCapabilitiesSet is returned when capabilities are attached to a peer
// that already has them.
var ErrCapabilitiesSet = errors.New("peer capabilities already set")

// Capability is a named, versioned protocol feature advertised by a peer.
type Capability struct {
	Name    string
	Version uint8
}

func (c Capability) String() string {
	return fmt.Sprintf("%s/%d", c.Name, c.Version)
}

// ParseCapability parses a capability in the "name/version" form.
func ParseCapability(s string) (Capability, error) {
	idx := strings.LastIndexByte(s, '/')
	if idx <= 0 || idx == len(s)-1 {
		return Capability{}, fmt.Errorf("capability %q: expected name/version", s)
	}

	version, err := strconv.ParseUint(s[idx+1:], 10, 8)
	if err != nil {
		return Capability{}, fmt.Errorf("capability %q: invalid version: %w", s, err)
	}

	return Capability{Name: s[:idx], Version: uint8(version)}, nil
}

// Peer is a remote node's identity as known to this node. The address,
// port and identifier are fixed at construction; capabilities are attached
// exactly once afterwards, before the peer is shared between goroutines.
type Peer struct {
	Address    net.IP
	Port       uint16
	Identifier string

	capabilities []Capability
	capsSet      bool
}

// NewPeer returns a peer without capabilities.
func NewPeer(identifier string, address net.IP, port uint16) *Peer {
	return &Peer{
		Address:    address,
		Port:       port,
		Identifier: identifier,
	}
}

// SetCapabilities attaches the capability list to the peer.
func (p *Peer) SetCapabilities(caps []Capability) error {
	if p.capsSet {
		return ErrCapabilitiesSet
	}

	p.capabilities = append(make([]Capability, 0, len(caps)), caps...)
	p.capsSet = true

	return nil
}

// Capabilities returns a copy of the peer's capability list.
func (p *Peer) Capabilities() []Capability {
	return append(make([]Capability, 0, len(p.capabilities)), p.capabilities...)
}

// HasCapability reports whether the peer advertises name at version or
// higher.
func (p *Peer) HasCapability(name string, version uint8) bool {
	for _, c := range p.capabilities {
		if c.Name == name && c.Version >= version {
			return true
		}
	}
	return false
}

// HostPort returns the peer's dialable address.
func (p *Peer) HostPort() string {
	return net.JoinHostPort(p.Address.String(), strconv.Itoa(int(p.Port)))
}

// Equal compares two peers field by field. IPv4 addresses compare equal
// regardless of their 4 or 16 byte representation.
func (p *Peer) Equal(o *Peer) bool {
	if p == nil || o == nil {
		return p == o
	}
	if !p.Address.Equal(o.Address) || p.Port != o.Port || p.Identifier != o.Identifier {
		return false
	}
	if len(p.capabilities) != len(o.capabilities) {
		return false
	}
	for i := range p.capabilities {
		if p.capabilities[i] != o.capabilities[i] {
			return false
		}
	}
	return true
}

func (p *Peer) String() string {
	if p.Identifier == "" {
		return p.HostPort()
	}
	return fmt.Sprintf("%s@%s", p.Identifier, p.HostPort())
}
