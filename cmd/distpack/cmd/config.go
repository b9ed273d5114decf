package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/distpack/internal/config"
	"github.com/oshokin/distpack/internal/logger"
)

var errConfigExists = errors.New("configuration file already exists")

// overwriteConfig allows config init to replace an existing file.
var overwriteConfig bool

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the distpack configuration file",
	}

	configInitCmd = &cobra.Command{
		Use:          "init [path]",
		Short:        "Write a configuration file with default values",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFilename
			if len(args) > 0 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !overwriteConfig {
				return fmt.Errorf("%s: %w (use --overwrite to replace it)", path, errConfigExists)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("inspect %s: %w", path, err)
			}

			if err := config.Save(path, config.Default()); err != nil {
				return err
			}

			logger.InfoKV(cmd.Context(), "Configuration file written", "path", path)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configInitCmd.Flags().BoolVar(&overwriteConfig, "overwrite", false, "replace an existing configuration file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
