package node

import (
	"fmt"
	"net"
	"strconv"

	dbm "github.com/tendermint/tm-db"

	"github.com/smilo-platform/smilo-sync/config"
	"github.com/smilo-platform/smilo-sync/internal/chain"
	"github.com/smilo-platform/smilo-sync/internal/p2p"
	"github.com/smilo-platform/smilo-sync/internal/p2p/payload"
	"github.com/smilo-platform/smilo-sync/internal/p2p/wire"
	"github.com/smilo-platform/smilo-sync/internal/store"
	"github.com/smilo-platform/smilo-sync/internal/syncstate"
	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/types"
)

// addressBook is the node's AddressManager: it knows the identifier the node
// announces to its peers.
type addressBook string

func (a addressBook) DefaultAddress() string { return string(a) }

func initDBs(cfg *config.Config, dbProvider config.DBProvider) (dbm.DB, *store.BlockStore, error) {
	blockStoreDB, err := dbProvider(&config.DBContext{ID: "blockstore", Config: cfg})
	if err != nil {
		return nil, nil, fmt.Errorf("opening blockstore: %w", err)
	}

	blockStore, err := store.NewBlockStore(blockStoreDB)
	if err != nil {
		return nil, nil, combineCloseError(fmt.Errorf("loading blockstore: %w", err), blockStoreDB)
	}

	return blockStoreDB, blockStore, nil
}

func combineCloseError(err error, db dbm.DB) error {
	if cerr := db.Close(); cerr != nil {
		return fmt.Errorf("%w; closing db: %v", err, cerr)
	}
	return err
}

// makeSelfPeer builds the record announced during the handshake from the
// listen address, the default address and the configured capabilities.
func makeSelfPeer(cfg *config.Config) (*types.Peer, error) {
	host, portStr, err := net.SplitHostPort(cfg.P2P.ListenHostPort())
	if err != nil {
		return nil, fmt.Errorf("invalid p2p listen address: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid p2p listen port: %w", err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("p2p listen host %q is not an IP address", host)
	}

	caps, err := cfg.P2P.ParsedCapabilities()
	if err != nil {
		return nil, err
	}

	self := types.NewPeer(cfg.DefaultAddress, ip, uint16(port))
	if err := self.SetCapabilities(caps); err != nil {
		return nil, err
	}
	return self, nil
}

// peerInitializer accepts every peer except this node itself.
func peerInitializer(logger log.Logger, selfID string) wire.PeerInitializer {
	return func(identifier string, address net.IP, port uint16) *types.Peer {
		if identifier == selfID {
			logger.Debug("rejecting connection to self", "address", address, "port", port)
			return nil
		}
		return types.NewPeer(identifier, address, port)
	}
}

func createRouter(
	logger log.Logger,
	metrics *p2p.Metrics,
	cfg *config.Config,
	self *types.Peer,
	blockStore *store.BlockStore,
) (*p2p.Router, error) {
	p2pLogger := logger.With("module", "p2p")
	codec := wire.NewCodec(p2pLogger, peerInitializer(p2pLogger, cfg.DefaultAddress))

	return p2p.NewRouter(
		p2pLogger,
		metrics,
		self,
		codec,
		blockStore,
		p2p.RouterOptions{
			ListenAddress:    cfg.P2P.ListenHostPort(),
			PersistentPeers:  cfg.P2P.PersistentPeerAddresses(),
			HandshakeTimeout: cfg.P2P.HandshakeTimeout,
			DialTimeout:      cfg.P2P.DialTimeout,
			PingInterval:     cfg.P2P.PingInterval,
			MaxMessageSize:   cfg.P2P.MaxMessageSize,

			MaxIncomingConnections: cfg.P2P.MaxNumInboundPeers,
		},
	)
}

func createDispatcher(
	logger log.Logger,
	metrics *payload.Metrics,
	syncState *syncstate.State,
	chainService *chain.Service,
	router *p2p.Router,
) (*payload.Dispatcher, error) {
	payloadLogger := logger.With("module", "payload")

	return payload.NewDispatcher(
		payloadLogger,
		metrics,
		payload.NewBlockHandler(payloadLogger, syncState, chain.NewParser(), chainService),
		payload.NewNetworkStateHandler(syncState),
		payload.NewPingHandler(router),
		payload.NewPongHandler(payloadLogger),
		payload.NewLinkNetworkHandler(syncState),
	)
}

func logNodeStartupInfo(logger log.Logger, cfg *config.Config, chainLength int64) {
	logger.Info("node started",
		"moniker", cfg.Moniker,
		"default_address", cfg.DefaultAddress,
		"chain_length", chainLength,
		"networks", cfg.Sync.Networks,
	)
}
