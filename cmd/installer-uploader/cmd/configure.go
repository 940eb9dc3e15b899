package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/installer-uploader/internal/service/configure"
)

var (
	// skipCheck saves settings without contacting the registry.
	skipCheck bool

	// configureCmd persists connection settings.
	configureCmd = &cobra.Command{
		Use:   "configure",
		Short: "Save the server URL and credentials to the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			return configure.Run(ctx, &configure.Options{
				ConfigPath: configPath,
				Values:     overrides,
				SkipCheck:  skipCheck,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	addConnectionFlags(configureCmd)
	configureCmd.Flags().StringVar(&overrides.BuildDir, "build-dir", "", "build output folder")
	configureCmd.Flags().BoolVar(&skipCheck, "skip-check", false, "save without verifying the credentials")

	rootCmd.AddCommand(configureCmd)
}
