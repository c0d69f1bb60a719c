package chain

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/smilo-platform/smilo-sync/internal/p2p/wire"
	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/types"
)

// MaxBlockSize bounds the encoded size of a block accepted from a peer.
const MaxBlockSize = 4 * 1024 * 1024

// Parser decodes blocks from their wire form.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

// Deserialize decodes an RLP encoded block and runs the stateless checks.
func (p *Parser) Deserialize(bz []byte) (*types.Block, error) {
	if len(bz) > MaxBlockSize {
		return nil, wire.DecodeError{Reason: fmt.Sprintf("block of %d bytes exceeds %d", len(bz), MaxBlockSize)}
	}

	block := new(types.Block)
	if err := rlp.DecodeBytes(bz, block); err != nil {
		return nil, wire.DecodeError{Reason: "block", Err: err}
	}
	if err := block.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid block: %w", err)
	}

	return block, nil
}

// Serialize encodes a block in the form Deserialize accepts.
func (p *Parser) Serialize(block *types.Block) ([]byte, error) {
	return rlp.EncodeToBytes(block)
}

// Store is the block persistence the Service appends to.
type Store interface {
	BlockchainLength() int64
	LastBlock() (*types.Block, error)
	SaveBlock(block *types.Block) error
}

// Service appends blocks to the local chain.
type Service struct {
	logger   log.Logger
	store    Store
	onAppend func()

	mtx sync.Mutex
}

// NewService returns a service appending to store. onAppend, when not nil,
// runs after every successful append; the node uses it to recompute the
// catchup mode.
func NewService(logger log.Logger, store Store, onAppend func()) *Service {
	return &Service{
		logger:   logger,
		store:    store,
		onAppend: onAppend,
	}
}

// AddBlockToSmiloChain appends block if it directly extends the current top
// of the chain. A block at a height the chain already holds is ignored.
func (s *Service) AddBlockToSmiloChain(block *types.Block) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	length := s.store.BlockchainLength()
	if int64(block.Height) < length {
		s.logger.Debug("ignoring known block", "height", block.Height, "chain_length", length)
		return nil
	}

	last, err := s.store.LastBlock()
	if err != nil {
		return err
	}
	if !block.Extends(last) {
		return fmt.Errorf("block %d does not extend chain of length %d", block.Height, length)
	}

	if err := s.store.SaveBlock(block); err != nil {
		return err
	}
	s.logger.Info("added block", "height", block.Height, "hash", log.Hexadecimal(block.Hash()))

	if s.onAppend != nil {
		s.onAppend()
	}

	return nil
}
