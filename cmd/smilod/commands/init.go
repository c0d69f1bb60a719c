package commands

import (
	"github.com/spf13/cobra"

	"github.com/smilo-platform/smilo-sync/config"
	tmos "github.com/smilo-platform/smilo-sync/libs/os"
)

// MakeInitCommand returns the command that writes the default config file
// into the home directory.
func MakeInitCommand(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initializes a smilo node home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(conf)
			if err != nil {
				return err
			}

			configFile := conf.ConfigFile()
			if tmos.FileExists(configFile) {
				logger.Info("Found config file", "path", configFile)
				return nil
			}

			if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
				return err
			}
			logger.Info("Generated config file", "path", configFile)
			return nil
		},
	}
}
