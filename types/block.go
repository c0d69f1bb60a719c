package types

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Block is the unit appended to the local chain. Blocks are numbered from
// zero; a chain of length n holds heights 0..n-1.
type Block struct {
	Height    uint64
	PrevHash  []byte
	Timestamp uint64
	Data      []byte
}

// Hash returns the SHA-256 digest of the block's RLP encoding.
func (b *Block) Hash() []byte {
	bz, err := rlp.EncodeToBytes(b)
	if err != nil {
		// encoding a struct of integers and byte slices cannot fail
		panic(err)
	}
	sum := sha256.Sum256(bz)
	return sum[:]
}

// ValidateBasic performs stateless checks on the block.
func (b *Block) ValidateBasic() error {
	if b == nil {
		return errors.New("nil block")
	}
	if b.Height == 0 && len(b.PrevHash) != 0 {
		return errors.New("genesis block must not reference a previous block")
	}
	if b.Height > 0 && len(b.PrevHash) != sha256.Size {
		return fmt.Errorf("expected PrevHash size %d, got %d", sha256.Size, len(b.PrevHash))
	}
	return nil
}

// Extends reports whether b directly follows prev.
func (b *Block) Extends(prev *Block) bool {
	if prev == nil {
		return b.Height == 0
	}
	return b.Height == prev.Height+1 && bytes.Equal(b.PrevHash, prev.Hash())
}
