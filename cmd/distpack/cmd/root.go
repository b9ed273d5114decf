package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/distpack/internal/service/packager"
	"github.com/oshokin/distpack/internal/version"
)

var (
	// options collects flag values for the packaging run.
	options packager.Options

	// rootCmd builds a release package from two revisions of the repository.
	rootCmd = &cobra.Command{
		Use:   "distpack <old-revision> <new-revision>",
		Short: "Build a deterministic release package from two git revisions",
		Long: `distpack compares two revisions of a git repository and builds a tar.gz package with
the added and changed files under app/, the removed paths in delete.list and the
binary wheels of new or changed Python dependencies under wheels/.

With --full the new revision is packaged in full and the old revision is ignored.`,
		Example: `  distpack v1.0 v1.1
  distpack v1.0 v1.1 -o release.tar.gz --platform manylinux2014_aarch64
  distpack HEAD v2.0 --full`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			opts := options
			opts.OldRevision = args[0]
			opts.NewRevision = args[1]

			_, err := packager.Run(ctx, &opts)

			return err
		},
	}
)

// Execute runs the distpack CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&options.OutputPath, "output-path", "o", "", "archive path (default: <prefix>_Update_<old>_to_<new>.tar.gz in the current directory)")
	flags.StringVar(&options.PythonVersion, "python-version", "", "target Python version for wheel downloads (default from configuration, 3.10)")
	flags.StringVar(&options.Platform, "platform", "", "target platform tag for wheel downloads (default from configuration, manylinux2014_x86_64)")
	flags.BoolVar(&options.Force, "force", false, "package even if the working tree has uncommitted changes")
	flags.BoolVar(&options.Full, "full", false, "package every file of the new revision instead of the difference")
	flags.StringVarP(&options.ConfigPath, "config", "c", "", "path to configuration file (default: distpack.yaml in the repository root)")
	flags.StringVarP(&options.RepoDir, "repo", "C", ".", "run as if started in this directory")
	flags.StringVar(&options.LogLevel, "log-level", "", "log level: debug, info, warn or error")
}
