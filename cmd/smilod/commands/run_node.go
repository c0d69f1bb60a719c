package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smilo-platform/smilo-sync/config"
	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/node"
)

// NodeProvider creates a node from its configuration.
type NodeProvider func(*config.Config, log.Logger) (*node.Node, error)

// AddNodeFlags exposes some common configuration options on the command-line
// These are exposed for convenience of commands embedding a smilo node
func AddNodeFlags(cmd *cobra.Command, conf *config.Config) {
	// bind flags
	cmd.Flags().String("moniker", conf.Moniker, "node name")
	cmd.Flags().String("default-address", conf.DefaultAddress, "identifier announced to peers")

	// p2p flags
	cmd.Flags().String(
		"p2p.laddr",
		conf.P2P.ListenAddress,
		"node listen address. (0.0.0.0:0 means any interface, any port)")
	cmd.Flags().String("p2p.persistent-peers", conf.P2P.PersistentPeers, "comma-delimited host:port persistent peers")
	cmd.Flags().StringSlice("p2p.capabilities", conf.P2P.Capabilities, "capabilities announced to peers, as name/version")

	// sync flags
	cmd.Flags().StringSlice("sync.networks", conf.Sync.Networks, "networks linked at startup")

	// db flags
	cmd.Flags().String(
		"db-backend",
		conf.DBBackend,
		"database backend: goleveldb | memdb")
	cmd.Flags().String(
		"db-dir",
		conf.DBPath,
		"database directory")
}

// MakeRunNodeCommand returns the command that runs a node until it is
// interrupted.
func MakeRunNodeCommand(conf *config.Config, nodeProvider NodeProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the smilo node",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(conf)
			if err != nil {
				return err
			}

			n, err := nodeProvider(conf, logger)
			if err != nil {
				return fmt.Errorf("failed to create node: %w", err)
			}

			// Stop upon receiving SIGTERM or CTRL-C.
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := n.Start(ctx); err != nil {
				return fmt.Errorf("failed to start node: %w", err)
			}

			logger.Info("started node", "node", n.String())

			// the node stops itself once ctx is canceled
			n.Wait()
			return nil
		},
	}

	AddNodeFlags(cmd, conf)
	return cmd
}
