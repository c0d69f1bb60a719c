package payload

import (
	"context"
	"strconv"

	"github.com/smilo-platform/smilo-sync/internal/p2p/wire"
	"github.com/smilo-platform/smilo-sync/types"
)

// NetworkStateHandler records the chain height a peer reports.
type NetworkStateHandler struct {
	state NetworkState
}

var _ Handler = (*NetworkStateHandler)(nil)

func NewNetworkStateHandler(state NetworkState) *NetworkStateHandler {
	return &NetworkStateHandler{state: state}
}

func (h *NetworkStateHandler) Supports() types.PayloadType { return types.PayloadTypeNetworkState }

func (h *NetworkStateHandler) HandlePeerPayload(_ context.Context, parts []string, _ *types.Peer) error {
	if len(parts) < 2 {
		return missingToken(types.PayloadTypeNetworkState, 1)
	}

	height, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return wire.DecodeError{Reason: "network state height", Err: err}
	}
	if height < 0 {
		return wire.DecodeError{Reason: "negative network state height " + parts[1]}
	}

	h.state.SetTopBlock(height)
	return nil
}
