package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/smilo-platform/smilo-sync/types"
)

// ErrNonContiguousBlock is returned when saving a block whose height is not
// the current chain length.
var ErrNonContiguousBlock = errors.New("block does not extend the chain")

const (
	prefixBlock = int64(0)
)

/*
BlockStore is a simple low level store for blocks, keyed by height.

The store always holds a contiguous chain starting at height 0, so its length
is the height of the last block plus one. The length is loaded when the store
is opened and kept in memory afterwards.
*/
type BlockStore struct {
	db dbm.DB

	mtx    sync.RWMutex
	length int64
}

// NewBlockStore returns a new BlockStore with the given DB, initialized to
// the last height that was committed to the DB.
func NewBlockStore(db dbm.DB) (*BlockStore, error) {
	bs := &BlockStore{db: db}

	iter, err := db.ReverseIterator(blockKey(0), blockKey(1<<63-1))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	if iter.Valid() {
		height, err := decodeBlockKey(iter.Key())
		if err != nil {
			return nil, err
		}
		bs.length = height + 1
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	return bs, nil
}

// BlockchainLength returns the number of blocks in the store.
func (bs *BlockStore) BlockchainLength() int64 {
	bs.mtx.RLock()
	defer bs.mtx.RUnlock()
	return bs.length
}

// LoadBlock returns the block with the given height.
// If no block is found for that height, it returns nil.
func (bs *BlockStore) LoadBlock(height int64) (*types.Block, error) {
	if height < 0 {
		return nil, nil
	}

	bz, err := bs.db.Get(blockKey(height))
	if err != nil {
		return nil, err
	}
	if len(bz) == 0 {
		return nil, nil
	}

	block := new(types.Block)
	if err := rlp.DecodeBytes(bz, block); err != nil {
		return nil, fmt.Errorf("decoding block at height %d: %w", height, err)
	}

	return block, nil
}

// LastBlock returns the block at the top of the chain, or nil for an empty
// store.
func (bs *BlockStore) LastBlock() (*types.Block, error) {
	return bs.LoadBlock(bs.BlockchainLength() - 1)
}

// SaveBlock persists the given block. The block height must equal the
// current chain length.
func (bs *BlockStore) SaveBlock(block *types.Block) error {
	if block == nil {
		return errors.New("cannot save nil block")
	}

	bz, err := rlp.EncodeToBytes(block)
	if err != nil {
		return err
	}

	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	if int64(block.Height) != bs.length {
		return fmt.Errorf("%w: height %d, chain length %d", ErrNonContiguousBlock, block.Height, bs.length)
	}

	if err := bs.db.SetSync(blockKey(int64(block.Height)), bz); err != nil {
		return err
	}
	bs.length++

	return nil
}

// Close closes the underlying database.
func (bs *BlockStore) Close() error {
	return bs.db.Close()
}

//---------------------------------- KEY ENCODING -----------------------------------------

func blockKey(height int64) []byte {
	key, err := orderedcode.Append(nil, prefixBlock, height)
	if err != nil {
		panic(err)
	}
	return key
}

func decodeBlockKey(key []byte) (height int64, err error) {
	var prefix int64
	remaining, err := orderedcode.Parse(string(key), &prefix, &height)
	if err != nil {
		return
	}
	if len(remaining) != 0 {
		return -1, fmt.Errorf("expected complete key but got remainder: %s", remaining)
	}
	if prefix != prefixBlock {
		return -1, fmt.Errorf("incorrect prefix. Expected %v, got %v", prefixBlock, prefix)
	}
	return
}
