package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockChaining(t *testing.T) {
	genesis := &Block{Height: 0, Timestamp: 1, Data: []byte("genesis")}
	require.NoError(t, genesis.ValidateBasic())
	require.True(t, genesis.Extends(nil))

	next := &Block{Height: 1, PrevHash: genesis.Hash(), Timestamp: 2}
	require.NoError(t, next.ValidateBasic())
	require.True(t, next.Extends(genesis))
	require.False(t, next.Extends(next))

	require.Error(t, (&Block{Height: 1}).ValidateBasic())
	require.Error(t, (&Block{Height: 0, PrevHash: genesis.Hash()}).ValidateBasic())

	var nilBlock *Block
	require.Error(t, nilBlock.ValidateBasic())
}
