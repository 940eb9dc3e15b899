package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/installer-uploader/internal/config"
	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/registry/registrytest"
	"github.com/oshokin/installer-uploader/internal/service/common"
	"github.com/oshokin/installer-uploader/internal/service/extractor"
	"github.com/oshokin/installer-uploader/internal/service/packager"
	"github.com/oshokin/installer-uploader/internal/service/uploader"
)

// TestPackager_OfflineRoundtrip packs a build, unpacks it elsewhere and publishes from the extracted sidecar.
func TestPackager_OfflineRoundtrip(t *testing.T) {
	t.Parallel()

	buildDir, installerPath := writeBuild(t, nil)

	archivePath, err := packager.Run(context.Background(), &packager.Options{
		Settings:       common.Settings{Overrides: config.Config{BuildDir: buildDir}},
		VerifyChecksum: true,
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Dir(installerPath), "ayon-server-installer-windows-1.2.3.zip"), archivePath)

	destDir := filepath.Join(t.TempDir(), "received")

	record, err := extractor.Run(context.Background(), &extractor.Options{
		ArchivePath: archivePath,
		OutputDir:   destDir,
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(destDir, "ayon-1.2.3.exe"), record.InstallerPath)

	data, err := os.ReadFile(record.InstallerPath)
	require.NoError(t, err)
	require.Equal(t, installerBody, data)

	srv := registrytest.NewServer()
	defer srv.Close()

	err = uploader.Run(context.Background(), &uploader.Options{
		Settings:       settingsFor(t, &config.Config{Server: srv.URL, APIKey: registrytest.APIKey}),
		MetadataPath:   record.InstallerPath + ".json",
		Upload:         true,
		VerifyChecksum: true,
	})
	require.NoError(t, err)

	uploaded, ok := srv.Upload("ayon-1.2.3.exe")
	require.True(t, ok)
	require.Equal(t, installerBody, uploaded)
}

// TestPackager_CustomOutput writes to the requested folder and validates the filename.
func TestPackager_CustomOutput(t *testing.T) {
	t.Parallel()

	buildDir, _ := writeBuild(t, nil)
	outputDir := filepath.Join(t.TempDir(), "dist")
	reportPath := filepath.Join(t.TempDir(), "error.json")

	archivePath, err := packager.Run(context.Background(), &packager.Options{
		Settings:  common.Settings{Overrides: config.Config{BuildDir: buildDir}},
		OutputDir: outputDir,
		Filename:  "bundle.zip",
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(outputDir, "bundle.zip"), archivePath)

	_, err = packager.Run(context.Background(), &packager.Options{
		Settings:        common.Settings{Overrides: config.Config{BuildDir: buildDir}},
		OutputDir:       outputDir,
		Filename:        "bundle.tar",
		ErrorReportPath: reportPath,
	})
	require.ErrorIs(t, err, installer.ErrConfiguration)

	_, err = os.Stat(reportPath)
	require.NoError(t, err)

	_, err = extractor.Run(context.Background(), &extractor.Options{})
	require.ErrorIs(t, err, installer.ErrConfiguration)
}
