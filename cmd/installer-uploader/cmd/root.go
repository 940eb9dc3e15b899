package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/installer-uploader/internal/config"
	"github.com/oshokin/installer-uploader/internal/logger"
	"github.com/oshokin/installer-uploader/internal/service/common"
	"github.com/oshokin/installer-uploader/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level written to stderr.
	logLevel string
	// errorReportPath receives the error window payload on failure.
	errorReportPath string

	// overrides collects connection and build flags; non-empty values win over the settings file.
	overrides config.Config
	// metadataPath overrides <build dir>/metadata.json.
	metadataPath string
	// verifyChecksum hashes the installer before it is published or packed.
	verifyChecksum bool
	// noProgress disables the upload progress bar.
	noProgress bool

	// rootCmd represents the base command; the work is done by subcommands.
	rootCmd = &cobra.Command{
		Use:   "installer-uploader",
		Short: "Publish launcher installers to the server registry",
		Long: `Publishes a locally built launcher installer to the server's installer registry.

The registry entry is compared with the build metadata first: an equal entry is left alone,
a missing one is created and a different one is only replaced with --force.
Installers can also be bundled with their metadata for offline transfer.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}
)

// Execute runs the installer-uploader CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// settings assembles the shared connection input from flags.
func settings() common.Settings {
	return common.Settings{
		ConfigPath: configPath,
		Overrides:  overrides,
		NoProgress: noProgress,
	}
}

// addConnectionFlags registers the registry connection flags on cmd.
func addConnectionFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&overrides.Server, "server", "", "registry server URL")
	flags.StringVar(&overrides.APIKey, "api-key", "", "registry API key")
	flags.StringVar(&overrides.Username, "username", "", "registry username, used when no valid API key is given")
	flags.StringVar(&overrides.Password, "password", "", "registry password")
	flags.DurationVar(&overrides.Timeout, "timeout", 0, "timeout of registry calls other than the upload")
}

// addBuildFlags registers the flags that locate the build metadata on cmd.
func addBuildFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&metadataPath, "metadata", "", "path to the metadata file (default <build-dir>/metadata.json)")
	flags.StringVar(&overrides.BuildDir, "build-dir", "", "build output folder (default \"build\")")
	flags.BoolVar(&verifyChecksum, "verify-checksum", false, "check the installer size and checksum before using it")
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&errorReportPath, "error-report", "", "write the error window payload to this file on failure")
}
