package payload

import (
	"context"

	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/types"
)

// PingHandler answers a PING with a PONG.
type PingHandler struct {
	sender PeerSender
}

var _ Handler = (*PingHandler)(nil)

func NewPingHandler(sender PeerSender) *PingHandler {
	return &PingHandler{sender: sender}
}

func (h *PingHandler) Supports() types.PayloadType { return types.PayloadTypePing }

func (h *PingHandler) HandlePeerPayload(ctx context.Context, _ []string, sender *types.Peer) error {
	return h.sender.SendToPeer(ctx, sender.Identifier, types.PayloadTypePong, "")
}

// PongHandler only logs. The connection layer refreshes the peer's last
// seen time for every message it receives, PONG included.
type PongHandler struct {
	logger log.Logger
}

var _ Handler = (*PongHandler)(nil)

func NewPongHandler(logger log.Logger) *PongHandler {
	return &PongHandler{logger: logger}
}

func (h *PongHandler) Supports() types.PayloadType { return types.PayloadTypePong }

func (h *PongHandler) HandlePeerPayload(_ context.Context, _ []string, sender *types.Peer) error {
	h.logger.Debug("received pong", "peer", sender.Identifier)
	return nil
}
