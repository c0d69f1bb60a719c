package main

import (
	"context"
	"os"

	"github.com/smilo-platform/smilo-sync/cmd/smilod/commands"
	"github.com/smilo-platform/smilo-sync/config"
	"github.com/smilo-platform/smilo-sync/libs/cli"
	"github.com/smilo-platform/smilo-sync/node"
)

func main() {
	ctx := context.Background()

	conf := config.DefaultConfig()

	rcmd := commands.RootCommand(conf)
	rcmd.AddCommand(
		commands.MakeInitCommand(conf),
		commands.MakePeerCommand(),
		commands.MakeRunNodeCommand(conf, node.NewDefault),
	)

	if err := cli.RunWithTrace(ctx, rcmd); err != nil {
		os.Exit(1)
	}
}
