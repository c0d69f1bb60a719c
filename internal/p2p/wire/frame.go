package wire

import (
	"github.com/ethereum/go-ethereum/rlp"
)

// MaxPeerRecordSize bounds a peer record read from a stream.
const MaxPeerRecordSize = 64 * 1024

// ReadPeerRecord reads exactly one encoded peer record from r. Bytes after
// the record are left unread, so r can continue to be used for the messages
// that follow the handshake.
func ReadPeerRecord(r rlp.ByteReader) ([]byte, error) {
	s := rlp.NewStream(r, MaxPeerRecordSize)

	raw, err := s.Raw()
	if err != nil {
		return nil, decodeErr("peer record frame", err)
	}
	return raw, nil
}
