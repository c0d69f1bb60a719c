package syncstate

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/types"
)

// ErrUnknownNetwork is returned for operations on a network identifier that
// is not registered.
var ErrUnknownNetwork = errors.New("unknown network")

// BlockStore reports the length of the local chain.
type BlockStore interface {
	BlockchainLength() int64
}

// PeerSender delivers a payload to the connected members of a network.
type PeerSender interface {
	BroadcastToNetwork(ctx context.Context, network *types.Network, pt types.PayloadType, payload string) error
}

// AddressManager provides this node's own identifier.
type AddressManager interface {
	DefaultAddress() string
}

// State is the node's view of network progress: the highest block reported
// by any peer, whether the local chain has to catch up to it, and the
// logical networks the node takes part in.
//
// All fields are guarded by a single mutex. SetTopBlock recomputes the
// catchup mode under the same critical section, so no reader can observe a
// new top block together with a stale catchup mode.
type State struct {
	logger     log.Logger
	metrics    *Metrics
	blockStore BlockStore
	sender     PeerSender
	addrs      AddressManager

	mtx         sync.RWMutex
	topBlock    int64
	catchupMode bool
	networks    map[string]*types.Network
}

// StateOption sets an optional parameter on the State.
type StateOption func(*State)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) StateOption {
	return func(s *State) { s.metrics = metrics }
}

// NewState returns a state with top block 0, catchup mode off and no
// networks.
func NewState(
	logger log.Logger,
	blockStore BlockStore,
	sender PeerSender,
	addrs AddressManager,
	options ...StateOption,
) *State {
	s := &State{
		logger:     logger,
		metrics:    NopMetrics(),
		blockStore: blockStore,
		sender:     sender,
		addrs:      addrs,
		networks:   make(map[string]*types.Network),
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// SetTopBlock records the highest block height seen on the network and
// recomputes the catchup mode.
func (s *State) SetTopBlock(height int64) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.topBlock = height
	s.metrics.TopBlock.Set(float64(height))
	s.updateCatchupMode()
}

// UpdateCatchupMode recomputes the catchup mode against the current chain
// length. It is called after the local chain grows.
func (s *State) UpdateCatchupMode() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.updateCatchupMode()
}

// The chain counts blocks from 0: a length of 100 means the top local block
// is at index 99, so a peer reporting 100 blocks means we are in sync.
//
// NOTE: s.mtx must be held.
func (s *State) updateCatchupMode() {
	length := s.blockStore.BlockchainLength()
	catchup := s.topBlock > length

	if catchup != s.catchupMode {
		s.logger.Info("catchup mode changed", "catchup", catchup, "top_block", s.topBlock, "chain_length", length)
	}
	s.catchupMode = catchup

	if catchup {
		s.metrics.CatchupMode.Set(1)
	} else {
		s.metrics.CatchupMode.Set(0)
	}
}

// CatchupMode reports whether the network is ahead of the local chain.
func (s *State) CatchupMode() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.catchupMode
}

// TopBlock returns the highest block height reported by the network.
func (s *State) TopBlock() int64 {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.topBlock
}

// SyncStatus returns the top block and the catchup mode derived from it as
// one consistent snapshot.
func (s *State) SyncStatus() (topBlock int64, catchupMode bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.topBlock, s.catchupMode
}

// AddNetwork registers the network, announces it to the network's peers and
// enrolls this node in it: confirmed when the network is LINKED (this node
// created it), unconfirmed otherwise.
//
// Registering an identifier that is already known is a no-op and returns
// false. The broadcast happens outside the lock and its failure does not
// undo the registration.
func (s *State) AddNetwork(ctx context.Context, network *types.Network) bool {
	s.mtx.Lock()
	if _, ok := s.networks[network.Identifier]; ok {
		s.mtx.Unlock()
		return false
	}

	s.networks[network.Identifier] = network
	self := s.addrs.DefaultAddress()
	if network.Status() == types.NetworkStatusLinked {
		network.Confirm(self)
	} else {
		network.AddUnconfirmed(self)
	}
	s.metrics.Networks.Set(float64(len(s.networks)))
	s.mtx.Unlock()

	s.logger.Info("added network", "network", network.Identifier, "status", network.Status())

	if err := s.sender.BroadcastToNetwork(ctx, network, types.PayloadTypeLinkNetwork, network.Identifier); err != nil {
		s.logger.Error("failed to announce network", "network", network.Identifier, "err", err)
	}

	return true
}

// RemoveNetwork unregisters the network with the given identifier. It
// returns false if no such network exists.
//
// TODO: disconnect peers that were only connected through the removed
// network.
func (s *State) RemoveNetwork(identifier string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.networks[identifier]; !ok {
		return false
	}

	delete(s.networks, identifier)
	s.metrics.Networks.Set(float64(len(s.networks)))
	s.logger.Info("removed network", "network", identifier)

	return true
}

// NetworkByIdentifier returns the network registered under identifier.
func (s *State) NetworkByIdentifier(identifier string) (*types.Network, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	network, ok := s.networks[identifier]
	return network, ok
}

// Networks returns the registered networks ordered by identifier.
func (s *State) Networks() []*types.Network {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	networks := make([]*types.Network, 0, len(s.networks))
	for _, n := range s.networks {
		networks = append(networks, n)
	}
	sort.Slice(networks, func(i, j int) bool {
		return networks[i].Identifier < networks[j].Identifier
	})

	return networks
}

// ConfirmPeer marks peerID as a confirmed member of the network.
func (s *State) ConfirmPeer(networkID, peerID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	network, ok := s.networks[networkID]
	if !ok {
		return ErrUnknownNetwork
	}

	network.Confirm(peerID)
	return nil
}
