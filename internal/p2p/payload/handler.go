package payload

import (
	"context"

	"github.com/smilo-platform/smilo-sync/types"
)

// Handler processes the messages of a single payload type. parts holds the
// message tokens, parts[0] being the type tag.
type Handler interface {
	Supports() types.PayloadType
	HandlePeerPayload(ctx context.Context, parts []string, sender *types.Peer) error
}

// HandlerFunc is the function form of Handler.HandlePeerPayload.
type HandlerFunc func(ctx context.Context, parts []string, sender *types.Peer) error

// NetworkState is the part of the sync state the handlers mutate.
type NetworkState interface {
	CatchupMode() bool
	SetTopBlock(height int64)
	ConfirmPeer(networkID, peerID string) error
}

// BlockParser turns wire bytes into a block.
type BlockParser interface {
	Deserialize(bz []byte) (*types.Block, error)
}

// ChainService appends blocks to the local chain.
type ChainService interface {
	AddBlockToSmiloChain(block *types.Block) error
}

// PeerSender delivers a payload to a single connected peer.
type PeerSender interface {
	SendToPeer(ctx context.Context, peerID string, pt types.PayloadType, payload string) error
}
