package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smilo-platform/smilo-sync/config"
	"github.com/smilo-platform/smilo-sync/internal/chain"
	"github.com/smilo-platform/smilo-sync/internal/p2p"
	"github.com/smilo-platform/smilo-sync/internal/p2p/payload"
	"github.com/smilo-platform/smilo-sync/internal/store"
	"github.com/smilo-platform/smilo-sync/internal/syncstate"
	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/libs/service"
	"github.com/smilo-platform/smilo-sync/types"
)

// Node is the highest level interface to a full smilo node.
// It includes all configuration information and running services.
type Node struct {
	service.BaseService
	logger log.Logger

	// config
	config *config.Config

	// services
	blockStore    *store.BlockStore
	chain         *chain.Service
	syncState     *syncstate.State
	dispatcher    *payload.Dispatcher
	router        *p2p.Router
	prometheusSrv *http.Server
}

// NewDefault constructs a node with the default database and metrics
// providers.
func NewDefault(cfg *config.Config, logger log.Logger) (*Node, error) {
	return NewNode(cfg, logger, config.DefaultDBProvider, DefaultMetricsProvider(cfg.Instrumentation))
}

// NewNode returns a new, ready to go node.
func NewNode(
	cfg *config.Config,
	logger log.Logger,
	dbProvider config.DBProvider,
	metricsProvider MetricsProvider,
) (*Node, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	blockStoreDB, blockStore, err := initDBs(cfg, dbProvider)
	if err != nil {
		return nil, err
	}

	p2pMetrics, payloadMetrics, syncMetrics := metricsProvider()

	self, err := makeSelfPeer(cfg)
	if err != nil {
		return nil, combineCloseError(err, blockStoreDB)
	}

	router, err := createRouter(logger, p2pMetrics, cfg, self, blockStore)
	if err != nil {
		return nil, combineCloseError(err, blockStoreDB)
	}

	syncState := syncstate.NewState(
		logger.With("module", "sync"),
		blockStore,
		router,
		addressBook(cfg.DefaultAddress),
		syncstate.WithMetrics(syncMetrics),
	)

	chainService := chain.NewService(logger.With("module", "chain"), blockStore, syncState.UpdateCatchupMode)

	dispatcher, err := createDispatcher(logger, payloadMetrics, syncState, chainService, router)
	if err != nil {
		return nil, combineCloseError(err, blockStoreDB)
	}
	router.SetDispatcher(dispatcher)

	// the chain may already be behind a top block learnt in a previous run;
	// start from a consistent catchup mode
	syncState.UpdateCatchupMode()

	node := &Node{
		logger:       logger,
		config:       cfg,
		blockStore:   blockStore,
		chain:        chainService,
		syncState:    syncState,
		dispatcher:   dispatcher,
		router:       router,
	}
	node.BaseService = *service.NewBaseService(logger, "Node", node)

	return node, nil
}

// OnStart starts the node. It implements service.Service.
func (n *Node) OnStart(ctx context.Context) error {
	if n.config.Instrumentation.Prometheus && n.config.Instrumentation.PrometheusListenAddr != "" {
		n.prometheusSrv = n.startPrometheusServer(n.config.Instrumentation.PrometheusListenAddr)
	}

	if err := n.router.Start(ctx); err != nil {
		return err
	}

	for _, id := range n.config.Sync.Networks {
		n.syncState.AddNetwork(ctx, types.NewNetwork(id, types.NetworkStatusLinked))
	}

	logNodeStartupInfo(n.logger, n.config, n.blockStore.BlockchainLength())

	return nil
}

// OnStop stops the node. It implements service.Service.
func (n *Node) OnStop() {
	n.logger.Info("Stopping Node")

	if err := n.router.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
		n.logger.Error("failed to stop router", "err", err)
	}

	if n.prometheusSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.prometheusSrv.Shutdown(ctx); err != nil {
			// Error from closing listeners, or context timeout:
			n.logger.Error("Prometheus HTTP server Shutdown", "err", err)
		}
	}

	if err := n.blockStore.Close(); err != nil {
		n.logger.Error("problem closing blockstore", "err", err)
	}
}

// startPrometheusServer starts a Prometheus HTTP server, listening for
// metrics collectors on addr.
func (n *Node) startPrometheusServer(addr string) *http.Server {
	srv := &http.Server{
		Addr: addr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			// Error starting or closing listener:
			n.logger.Error("Prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	return srv
}

// Config returns the Node's config.
func (n *Node) Config() *config.Config {
	return n.config
}

// BlockStore returns the Node's BlockStore.
func (n *Node) BlockStore() *store.BlockStore {
	return n.blockStore
}

// ChainService returns the Node's chain service.
func (n *Node) ChainService() *chain.Service {
	return n.chain
}

// SyncState returns the Node's network sync state.
func (n *Node) SyncState() *syncstate.State {
	return n.syncState
}

// Router returns the Node's router.
func (n *Node) Router() *p2p.Router {
	return n.router
}

//------------------------------------------------------------------------------

// MetricsProvider returns the metrics of every instrumented component.
type MetricsProvider func() (*p2p.Metrics, *payload.Metrics, *syncstate.Metrics)

// DefaultMetricsProvider returns Metrics build using Prometheus client library
// if Prometheus is enabled. Otherwise, it returns no-op Metrics.
func DefaultMetricsProvider(cfg *config.InstrumentationConfig) MetricsProvider {
	return func() (*p2p.Metrics, *payload.Metrics, *syncstate.Metrics) {
		if cfg.Prometheus {
			return p2p.PrometheusMetrics(cfg.Namespace),
				payload.PrometheusMetrics(cfg.Namespace),
				syncstate.PrometheusMetrics(cfg.Namespace)
		}
		return p2p.NopMetrics(), payload.NopMetrics(), syncstate.NopMetrics()
	}
}

// NopMetricsProvider returns no-op Metrics for every component.
func NopMetricsProvider() MetricsProvider {
	return func() (*p2p.Metrics, *payload.Metrics, *syncstate.Metrics) {
		return p2p.NopMetrics(), payload.NopMetrics(), syncstate.NopMetrics()
	}
}
