package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smilo-platform/smilo-sync/internal/p2p/wire"
	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/types"
)

// MakePeerCommand returns the command group that encodes and decodes peer
// records.
func MakePeerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "peer",
		Short:       "Encode and decode peer records",
		Annotations: map[string]string{skipConfigAnnotation: ""},
	}
	cmd.AddCommand(makePeerEncodeCommand(), makePeerDecodeCommand())
	return cmd
}

func makePeerEncodeCommand() *cobra.Command {
	var (
		address string
		port    uint16
		id      string
		caps    []string
	)

	cmd := &cobra.Command{
		Use:         "encode",
		Short:       "Print the hex encoded record of a peer",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			ip := net.ParseIP(address)
			if ip == nil {
				return fmt.Errorf("invalid address %q", address)
			}

			peer := types.NewPeer(id, ip, port)
			capabilities := make([]types.Capability, 0, len(caps))
			for _, s := range caps {
				c, err := types.ParseCapability(s)
				if err != nil {
					return err
				}
				capabilities = append(capabilities, c)
			}
			if err := peer.SetCapabilities(capabilities); err != nil {
				return err
			}

			bz, err := wire.NewCodec(log.NewNopLogger(), nil).Encode(peer)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(bz))
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "127.0.0.1", "IPv4 or IPv6 address of the peer")
	cmd.Flags().Uint16Var(&port, "port", 30303, "port of the peer")
	cmd.Flags().StringVar(&id, "id", "", "identifier of the peer")
	cmd.Flags().StringSliceVar(&caps, "cap", nil, "capability as name/version, repeatable")

	return cmd
}

func makePeerDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "decode <hex>",
		Short:       "Print the peer held by a hex encoded record",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
			if err != nil {
				return fmt.Errorf("invalid hex: %w", err)
			}

			peer, err := wire.NewCodec(log.NewNopLogger(), nil).Decode(bz)
			if err != nil {
				var hostErr wire.HostResolutionError
				if errors.As(err, &hostErr) {
					return fmt.Errorf("record holds an unusable address %x: %w", hostErr.Address, err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "identifier:   %s\n", peer.Identifier)
			fmt.Fprintf(out, "address:      %s\n", peer.Address)
			fmt.Fprintf(out, "port:         %d\n", peer.Port)
			capStrings := make([]string, 0)
			for _, c := range peer.Capabilities() {
				capStrings = append(capStrings, c.String())
			}
			fmt.Fprintf(out, "capabilities: %s\n", strings.Join(capStrings, ", "))
			return nil
		},
	}
}
