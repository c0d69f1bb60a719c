package payload

import (
	"context"

	"github.com/smilo-platform/smilo-sync/types"
)

// LinkNetworkHandler confirms the sender as a member of a network it
// announces. Announcements for networks this node does not know are
// rejected with syncstate.ErrUnknownNetwork.
type LinkNetworkHandler struct {
	state NetworkState
}

var _ Handler = (*LinkNetworkHandler)(nil)

func NewLinkNetworkHandler(state NetworkState) *LinkNetworkHandler {
	return &LinkNetworkHandler{state: state}
}

func (h *LinkNetworkHandler) Supports() types.PayloadType { return types.PayloadTypeLinkNetwork }

func (h *LinkNetworkHandler) HandlePeerPayload(_ context.Context, parts []string, sender *types.Peer) error {
	if len(parts) < 2 || parts[1] == "" {
		return missingToken(types.PayloadTypeLinkNetwork, 1)
	}

	return h.state.ConfirmPeer(parts[1], sender.Identifier)
}
