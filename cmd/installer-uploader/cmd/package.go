package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/installer-uploader/internal/service/extractor"
	"github.com/oshokin/installer-uploader/internal/service/packager"
)

var (
	// outputDir is where bundles are written or unpacked.
	outputDir string
	// packageFilename names the bundle.
	packageFilename string

	// createPackageCmd bundles the installer with its metadata.
	createPackageCmd = &cobra.Command{
		Use:   "create-server-package",
		Short: "Bundle the installer and its metadata into a ZIP for offline transfer",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			_, err := packager.Run(ctx, &packager.Options{
				Settings:        settings(),
				MetadataPath:    metadataPath,
				OutputDir:       outputDir,
				Filename:        packageFilename,
				VerifyChecksum:  verifyChecksum,
				ErrorReportPath: errorReportPath,
			})

			return err
		},
	}

	// extractPackageCmd unpacks a bundle made by create-server-package.
	extractPackageCmd = &cobra.Command{
		Use:   "extract-server-package [archive]",
		Short: "Unpack a server package so it can be published with upload --metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			_, err := extractor.Run(ctx, &extractor.Options{
				ArchivePath:     args[0],
				OutputDir:       outputDir,
				ErrorReportPath: errorReportPath,
			})

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	addBuildFlags(createPackageCmd)
	createPackageCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output folder (default the installer's folder)")
	createPackageCmd.Flags().StringVarP(&packageFilename, "filename", "f", "",
		"package filename ending with .zip (default ayon-server-installer-<platform>-<version>.zip)")

	extractPackageCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output folder (default the archive's folder)")

	rootCmd.AddCommand(createPackageCmd, extractPackageCmd)
}
