package types

import (
	"sort"
	"sync"
)

// NetworkStatus is the link state of a logical network.
type NetworkStatus uint8

const (
	// NetworkStatusUnlinked marks a network this node joined but that has not
	// confirmed it yet.
	NetworkStatusUnlinked NetworkStatus = iota
	// NetworkStatusLinked marks a network this node created or was confirmed in.
	NetworkStatusLinked
)

func (s NetworkStatus) String() string {
	switch s {
	case NetworkStatusLinked:
		return "LINKED"
	case NetworkStatusUnlinked:
		return "UNLINKED"
	default:
		return "UNKNOWN"
	}
}

// Network is a named sub-group of peers. A peer identifier is either
// confirmed or unconfirmed in a network, never both.
type Network struct {
	Identifier string

	mtx         sync.RWMutex
	status      NetworkStatus
	confirmed   map[string]struct{}
	unconfirmed map[string]struct{}
}

func NewNetwork(identifier string, status NetworkStatus) *Network {
	return &Network{
		Identifier:  identifier,
		status:      status,
		confirmed:   make(map[string]struct{}),
		unconfirmed: make(map[string]struct{}),
	}
}

func (n *Network) Status() NetworkStatus {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.status
}

func (n *Network) SetStatus(status NetworkStatus) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.status = status
}

// Confirm moves peerID into the confirmed set.
func (n *Network) Confirm(peerID string) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	delete(n.unconfirmed, peerID)
	n.confirmed[peerID] = struct{}{}
}

// AddUnconfirmed adds peerID to the unconfirmed set. It returns false if the
// peer is already confirmed, in which case the network is left untouched.
func (n *Network) AddUnconfirmed(peerID string) bool {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	if _, ok := n.confirmed[peerID]; ok {
		return false
	}
	n.unconfirmed[peerID] = struct{}{}
	return true
}

// Remove drops peerID from both sets.
func (n *Network) Remove(peerID string) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	delete(n.confirmed, peerID)
	delete(n.unconfirmed, peerID)
}

func (n *Network) IsConfirmed(peerID string) bool {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	_, ok := n.confirmed[peerID]
	return ok
}

func (n *Network) IsUnconfirmed(peerID string) bool {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	_, ok := n.unconfirmed[peerID]
	return ok
}

// ConfirmedPeers returns the confirmed peer identifiers in sorted order.
func (n *Network) ConfirmedPeers() []string {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return sortedKeys(n.confirmed)
}

// UnconfirmedPeers returns the unconfirmed peer identifiers in sorted order.
func (n *Network) UnconfirmedPeers() []string {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return sortedKeys(n.unconfirmed)
}

// Peers returns every member of the network, confirmed or not, sorted.
func (n *Network) Peers() []string {
	n.mtx.RLock()
	defer n.mtx.RUnlock()

	ids := make([]string, 0, len(n.confirmed)+len(n.unconfirmed))
	for id := range n.confirmed {
		ids = append(ids, id)
	}
	for id := range n.unconfirmed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
