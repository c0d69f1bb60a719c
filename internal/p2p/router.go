package p2p

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/smilo-platform/smilo-sync/internal/p2p/wire"
	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/libs/service"
	"github.com/smilo-platform/smilo-sync/types"
)

var (
	// ErrPeerNotConnected is returned when sending to a peer without an open
	// connection.
	ErrPeerNotConnected = errors.New("peer not connected")
	// ErrDuplicatePeer is returned when a peer identifier is already
	// connected.
	ErrDuplicatePeer = errors.New("peer already connected")
)

// Dispatcher routes a message received from a peer to its handler.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg types.Message, sender *types.Peer) error
}

// ChainLength reports the local chain length announced to new peers.
type ChainLength interface {
	BlockchainLength() int64
}

// RouterOptions specifies options for a Router.
type RouterOptions struct {
	// ListenAddress is the TCP address inbound peers connect to. An empty
	// address disables inbound connections.
	ListenAddress string

	// PersistentPeers are dialed when the router starts.
	PersistentPeers []string

	// HandshakeTimeout bounds the exchange of peer records.
	HandshakeTimeout time.Duration

	// DialTimeout bounds establishing an outbound TCP connection.
	DialTimeout time.Duration

	// PingInterval is the period between PING broadcasts. Peers that have
	// not sent anything for three intervals are disconnected. Zero disables
	// both.
	PingInterval time.Duration

	// MaxMessageSize bounds a single application message.
	MaxMessageSize int

	// MaxIncomingConnections limits the number of inbound connections held
	// open at once. Zero means unlimited.
	MaxIncomingConnections int
}

// Validate validates router options.
func (o *RouterOptions) Validate() error {
	if o.HandshakeTimeout <= 0 {
		return errors.New("handshake timeout must be positive")
	}
	if o.DialTimeout <= 0 {
		return errors.New("dial timeout must be positive")
	}
	if o.PingInterval < 0 {
		return errors.New("ping interval can't be negative")
	}
	if o.MaxMessageSize <= 0 {
		return errors.New("max message size must be positive")
	}
	if o.MaxIncomingConnections < 0 {
		return errors.New("max incoming connections can't be negative")
	}
	return nil
}

// Router owns the connections to peers. It exchanges peer records when a
// connection opens, then runs one receive routine per peer that feeds
// messages, one at a time, to the dispatcher. It also implements the
// PeerSender contracts used by the sync state and the payload handlers.
type Router struct {
	service.BaseService
	logger log.Logger

	metrics    *Metrics
	options    RouterOptions
	self       *types.Peer
	codec      *wire.Codec
	chain      ChainLength
	dispatcher Dispatcher

	listener net.Listener
	done     chan struct{}
	wg       sync.WaitGroup

	peerMtx sync.RWMutex
	peers   map[string]*peerConn
}

// NewRouter creates a new Router. self is the record sent to every peer
// during the handshake. The dispatcher must be set with SetDispatcher before
// the router is started.
func NewRouter(
	logger log.Logger,
	metrics *Metrics,
	self *types.Peer,
	codec *wire.Codec,
	chain ChainLength,
	options RouterOptions,
) (*Router, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NopMetrics()
	}

	r := &Router{
		logger:  logger,
		metrics: metrics,
		options: options,
		self:    self,
		codec:   codec,
		chain:   chain,
		done:    make(chan struct{}),
		peers:   make(map[string]*peerConn),
	}
	r.BaseService = *service.NewBaseService(logger, "router", r)

	return r, nil
}

// SetDispatcher sets the dispatcher inbound messages are routed to.
func (r *Router) SetDispatcher(d Dispatcher) {
	r.dispatcher = d
}

// OnStart implements service.Service.
func (r *Router) OnStart(ctx context.Context) error {
	if r.dispatcher == nil {
		return errors.New("router has no dispatcher")
	}

	if r.options.ListenAddress != "" {
		listener, err := net.Listen("tcp", r.options.ListenAddress)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", r.options.ListenAddress, err)
		}
		if r.options.MaxIncomingConnections > 0 {
			listener = netutil.LimitListener(listener, r.options.MaxIncomingConnections)
		}
		r.listener = listener
		r.logger.Info("listening for peers", "addr", listener.Addr().String())

		r.spawn(func() { r.acceptPeers(ctx) })
	}

	if r.options.PingInterval > 0 {
		r.spawn(func() { r.pingPeers(ctx) })
	}

	r.spawn(func() { r.dialPersistentPeers(ctx) })

	return nil
}

// OnStop implements service.Service.
func (r *Router) OnStop() {
	close(r.done)

	if r.listener != nil {
		if err := r.listener.Close(); err != nil {
			r.logger.Error("failed to close listener", "err", err)
		}
	}

	r.peerMtx.RLock()
	for _, pc := range r.peers {
		pc.close()
	}
	r.peerMtx.RUnlock()

	r.wg.Wait()
}

// ListenAddr returns the address the router accepts peers on, or nil.
func (r *Router) ListenAddr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

func (r *Router) spawn(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *Router) stopping() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// acceptPeers accepts inbound connections and hands each one to its own
// goroutine, so a slow handshake does not hold up the others.
func (r *Router) acceptPeers(ctx context.Context) {
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if r.stopping() || ctx.Err() != nil {
				r.logger.Debug("stopping accept routine")
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Temporary() { //nolint:staticcheck
				r.logger.Error("failed to accept connection", "err", err)
				continue
			}
			r.logger.Error("accept routine failed", "err", err)
			return
		}

		r.spawn(func() {
			if _, err := r.openConnection(ctx, conn); err != nil {
				r.logger.Error("failed to open inbound connection", "remote", conn.RemoteAddr().String(), "err", err)
			}
		})
	}
}

// Dial connects to the peer listening on address and starts routing its
// messages.
func (r *Router) Dial(ctx context.Context, address string) (*types.Peer, error) {
	dialer := net.Dialer{Timeout: r.options.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}

	return r.openConnection(ctx, conn)
}

func (r *Router) dialPersistentPeers(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, address := range r.options.PersistentPeers {
		address := address
		g.Go(func() error {
			peer, err := r.Dial(gctx, address)
			if err != nil {
				r.logger.Error("failed to dial persistent peer", "addr", address, "err", err)
				return nil
			}
			r.logger.Info("connected to persistent peer", "addr", address, "peer", peer.Identifier)
			return nil
		})
	}
	_ = g.Wait()
}

// openConnection runs the handshake on conn, registers the peer and starts
// its receive routine. conn is closed on failure.
func (r *Router) openConnection(ctx context.Context, conn net.Conn) (*types.Peer, error) {
	pc, err := r.handshakePeer(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := r.addPeer(pc); err != nil {
		conn.Close()
		return nil, err
	}

	go func() {
		defer r.wg.Done()
		r.routePeer(ctx, pc)
	}()

	return pc.peer, nil
}

// handshakePeer sends this node's peer record and reads the remote one.
func (r *Router) handshakePeer(conn net.Conn) (*peerConn, error) {
	if err := conn.SetDeadline(time.Now().Add(r.options.HandshakeTimeout)); err != nil {
		return nil, err
	}

	record, err := r.codec.Encode(r.self)
	if err != nil {
		return nil, fmt.Errorf("encoding own peer record: %w", err)
	}
	if _, err := conn.Write(record); err != nil {
		return nil, fmt.Errorf("sending peer record: %w", err)
	}

	reader := bufio.NewReader(conn)
	raw, err := wire.ReadPeerRecord(reader)
	if err != nil {
		return nil, err
	}
	peer, err := r.codec.Decode(raw)
	if err != nil {
		return nil, err
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}

	return newPeerConn(peer, conn, reader), nil
}

func (r *Router) addPeer(pc *peerConn) error {
	r.peerMtx.Lock()
	defer r.peerMtx.Unlock()

	if r.stopping() {
		return errors.New("router is stopping")
	}
	if _, ok := r.peers[pc.peer.Identifier]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePeer, pc.peer.Identifier)
	}

	r.peers[pc.peer.Identifier] = pc
	r.metrics.Peers.Add(1)
	// the receive routine is accounted for before OnStop can observe the peer
	r.wg.Add(1)
	r.logger.Info("peer connected", "peer", pc.peer, "caps", pc.peer.Capabilities())

	return nil
}

func (r *Router) removePeer(pc *peerConn) {
	r.peerMtx.Lock()
	defer r.peerMtx.Unlock()

	if r.peers[pc.peer.Identifier] == pc {
		delete(r.peers, pc.peer.Identifier)
		r.metrics.Peers.Add(-1)
		r.logger.Info("peer disconnected", "peer", pc.peer)
	}
}

// routePeer announces the local chain length to the peer, then reads and
// dispatches its messages until the connection closes.
func (r *Router) routePeer(ctx context.Context, pc *peerConn) {
	defer r.removePeer(pc)
	defer pc.close()

	logger := r.logger.With("peer", pc.peer.Identifier)

	status := types.NewMessage(types.PayloadTypeNetworkState, fmt.Sprint(r.chain.BlockchainLength()))
	if err := r.send(pc, status); err != nil {
		logger.Error("failed to send network state", "err", err)
		return
	}

	scanner := bufio.NewScanner(pc.reader)
	scanner.Buffer(make([]byte, 0, 4096), r.options.MaxMessageSize)

	for scanner.Scan() {
		pc.touch()

		msg, err := types.ParseMessage(scanner.Text())
		if errors.Is(err, types.ErrEmptyMessage) {
			continue
		}

		if err := r.handleMessage(ctx, msg, pc.peer); err != nil {
			logger.Error("failed to process message", "type", msg.Tag(), "err", err)
		}
	}

	if err := scanner.Err(); err != nil && !r.stopping() && !pc.closed() {
		logger.Error("peer receive failed", "err", err)
	}
}

// handleMessage dispatches a message, turning handler panics into errors so
// that a misbehaving peer cannot take the node down.
func (r *Router) handleMessage(ctx context.Context, msg types.Message, sender *types.Peer) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("panic in processing message: %v", e)
			r.logger.Error(
				"recovering from processing message panic",
				"err", err,
				"stack", string(debug.Stack()),
			)
		}
	}()

	return r.dispatcher.Dispatch(ctx, msg, sender)
}

func (r *Router) pingPeers(ctx context.Context) {
	ticker := time.NewTicker(r.options.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.evictPeers(time.Now().Add(-3 * r.options.PingInterval))
			if err := r.Broadcast(ctx, types.PayloadTypePing, ""); err != nil {
				r.logger.Debug("failed to ping peers", "err", err)
			}
		}
	}
}

// evictPeers disconnects every peer not heard from since cutoff.
func (r *Router) evictPeers(cutoff time.Time) {
	r.peerMtx.RLock()
	defer r.peerMtx.RUnlock()

	for _, pc := range r.peers {
		if pc.lastSeen().Before(cutoff) {
			r.logger.Info("evicting unresponsive peer", "peer", pc.peer, "last_seen", pc.lastSeen())
			pc.close()
		}
	}
}

// Peers returns the connected peers ordered by identifier.
func (r *Router) Peers() []*types.Peer {
	r.peerMtx.RLock()
	defer r.peerMtx.RUnlock()

	peers := make([]*types.Peer, 0, len(r.peers))
	for _, pc := range r.peers {
		peers = append(peers, pc.peer)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].Identifier < peers[j].Identifier })

	return peers
}

// SendToPeer sends a payload to a connected peer. An empty payload sends a
// message made of the type tag only.
func (r *Router) SendToPeer(ctx context.Context, peerID string, pt types.PayloadType, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.peerMtx.RLock()
	pc, ok := r.peers[peerID]
	r.peerMtx.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrPeerNotConnected, peerID)
	}

	return r.send(pc, newMessage(pt, payload))
}

// BroadcastToNetwork sends a payload to every connected member of the
// network. Members without a connection are skipped.
func (r *Router) BroadcastToNetwork(ctx context.Context, network *types.Network, pt types.PayloadType, payload string) error {
	return r.broadcast(ctx, newMessage(pt, payload), func(id string) bool {
		return network.IsConfirmed(id) || network.IsUnconfirmed(id)
	})
}

// Broadcast sends a payload to every connected peer.
func (r *Router) Broadcast(ctx context.Context, pt types.PayloadType, payload string) error {
	return r.broadcast(ctx, newMessage(pt, payload), func(string) bool { return true })
}

func (r *Router) broadcast(ctx context.Context, msg types.Message, include func(id string) bool) error {
	r.peerMtx.RLock()
	targets := make([]*peerConn, 0, len(r.peers))
	for id, pc := range r.peers {
		if include(id) {
			targets = append(targets, pc)
		}
	}
	r.peerMtx.RUnlock()

	var (
		failed   int
		firstErr error
	)
	for _, pc := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.send(pc, msg); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return fmt.Errorf("%s broadcast failed for %d of %d peers: %w", msg.Type, failed, len(targets), firstErr)
	}
	return nil
}

func (r *Router) send(pc *peerConn, msg types.Message) error {
	if err := pc.send(msg, r.options.HandshakeTimeout); err != nil {
		return fmt.Errorf("sending %s to %s: %w", msg.Type, pc.peer.Identifier, err)
	}
	r.metrics.MessagesSent.With("payload_type", msg.Type.String()).Add(1)
	return nil
}

func newMessage(pt types.PayloadType, payload string) types.Message {
	if payload == "" {
		return types.NewMessage(pt)
	}
	return types.NewMessage(pt, payload)
}
