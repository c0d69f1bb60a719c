package p2p

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smilo-platform/smilo-sync/types"
)

// peerConn is an open connection to a peer whose handshake completed.
type peerConn struct {
	peer   *types.Peer
	conn   net.Conn
	reader *bufio.Reader

	sendMtx   sync.Mutex
	seen      int64 // unix nanos, atomic
	closeOnce sync.Once
	isClosed  int32 // atomic
}

func newPeerConn(peer *types.Peer, conn net.Conn, reader *bufio.Reader) *peerConn {
	pc := &peerConn{
		peer:   peer,
		conn:   conn,
		reader: reader,
	}
	pc.touch()
	return pc
}

// touch records that the peer was heard from.
func (pc *peerConn) touch() {
	atomic.StoreInt64(&pc.seen, time.Now().UnixNano())
}

func (pc *peerConn) lastSeen() time.Time {
	return time.Unix(0, atomic.LoadInt64(&pc.seen))
}

// send writes msg as a single newline terminated line.
func (pc *peerConn) send(msg types.Message, timeout time.Duration) error {
	pc.sendMtx.Lock()
	defer pc.sendMtx.Unlock()

	if err := pc.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := pc.conn.Write([]byte(msg.String() + "\n"))
	return err
}

func (pc *peerConn) close() {
	pc.closeOnce.Do(func() {
		atomic.StoreInt32(&pc.isClosed, 1)
		_ = pc.conn.Close()
	})
}

func (pc *peerConn) closed() bool {
	return atomic.LoadInt32(&pc.isClosed) == 1
}
