package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/installer-uploader/internal/service/uploader"
)

var (
	// force replaces a registry entry with different values.
	force bool

	// uploadCmd creates the registry entry and uploads the binary.
	uploadCmd = &cobra.Command{
		Use:   "upload",
		Short: "Create the installer entry on the server and upload the installer",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runUploader(true)
		},
	}

	// createInstallerCmd only creates the registry entry.
	createInstallerCmd = &cobra.Command{
		Use:   "create-server-installer",
		Short: "Create the installer entry on the server without uploading the installer",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runUploader(false)
		},
	}
)

func runUploader(upload bool) error {
	// Setup graceful shutdown handling.
	ctx, stop := signalContext()
	defer stop()

	return uploader.Run(ctx, &uploader.Options{
		Settings:        settings(),
		MetadataPath:    metadataPath,
		Force:           force,
		Upload:          upload,
		VerifyChecksum:  verifyChecksum,
		ErrorReportPath: errorReportPath,
	})
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, cmd := range []*cobra.Command{uploadCmd, createInstallerCmd} {
		addConnectionFlags(cmd)
		addBuildFlags(cmd)
		cmd.Flags().BoolVar(&force, "force", false, "replace a server entry that differs from the local build")

		rootCmd.AddCommand(cmd)
	}

	uploadCmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not render the upload progress bar")
}
