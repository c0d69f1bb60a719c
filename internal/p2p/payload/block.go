package payload

import (
	"context"
	"encoding/base64"

	"github.com/smilo-platform/smilo-sync/internal/p2p/wire"
	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/types"
)

// BlockHandler applies blocks sent by peers while the node is catching up.
//
// When the node is in sync, new blocks only arrive through consensus
// commits; a BLOCK payload is ignored so that no peer can inject a block by
// claiming to have one.
type BlockHandler struct {
	logger log.Logger
	state  NetworkState
	parser BlockParser
	chain  ChainService
}

var _ Handler = (*BlockHandler)(nil)

func NewBlockHandler(logger log.Logger, state NetworkState, parser BlockParser, chain ChainService) *BlockHandler {
	return &BlockHandler{
		logger: logger,
		state:  state,
		parser: parser,
		chain:  chain,
	}
}

func (h *BlockHandler) Supports() types.PayloadType { return types.PayloadTypeBlock }

func (h *BlockHandler) HandlePeerPayload(_ context.Context, parts []string, sender *types.Peer) error {
	if !h.state.CatchupMode() {
		h.logger.Debug("ignoring block while in sync", "peer", sender.Identifier)
		return nil
	}
	if len(parts) < 2 {
		return missingToken(types.PayloadTypeBlock, 1)
	}

	bz, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return wire.DecodeError{Reason: "block payload is not base64", Err: err}
	}

	block, err := h.parser.Deserialize(bz)
	if err != nil {
		return err
	}

	return h.chain.AddBlockToSmiloChain(block)
}
