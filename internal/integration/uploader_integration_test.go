package integration

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/installer-uploader/internal/config"
	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/notice"
	"github.com/oshokin/installer-uploader/internal/registry/registrytest"
	"github.com/oshokin/installer-uploader/internal/service/uploader"
)

// TestUploader_CreatesUploadsThenNoops publishes once and leaves the registry alone on the second run.
func TestUploader_CreatesUploadsThenNoops(t *testing.T) {
	t.Parallel()

	srv := registrytest.NewServer()
	defer srv.Close()

	buildDir, _ := writeBuild(t, nil)

	options := &uploader.Options{
		Settings:       settingsFor(t, &config.Config{Server: srv.URL, APIKey: registrytest.APIKey, BuildDir: buildDir}),
		Upload:         true,
		VerifyChecksum: true,
	}

	require.NoError(t, uploader.Run(context.Background(), options))

	stored := srv.Installers()
	require.Len(t, stored, 1)
	require.Equal(t, "ayon-1.2.3.exe", stored[0].Filename)
	require.Equal(t, "3.9.13", stored[0].PythonVersion)
	require.Equal(t, map[string]string{"certifi": "2024.2.2"}, stored[0].RuntimePythonModules)

	data, ok := srv.Upload("ayon-1.2.3.exe")
	require.True(t, ok)
	require.Equal(t, installerBody, data)

	writes := len(srv.WriteCalls())
	require.Equal(t, 2, writes)

	require.NoError(t, uploader.Run(context.Background(), options))
	require.Len(t, srv.WriteCalls(), writes)
}

// TestUploader_CreateOnly registers the record without sending the binary.
func TestUploader_CreateOnly(t *testing.T) {
	t.Parallel()

	srv := registrytest.NewServer()
	defer srv.Close()

	buildDir, _ := writeBuild(t, nil)

	options := &uploader.Options{
		Settings: settingsFor(t, &config.Config{
			Server:   srv.URL,
			Username: registrytest.Username,
			Password: registrytest.Password,
		}),
		MetadataPath: filepath.Join(buildDir, "metadata.json"),
	}

	require.NoError(t, uploader.Run(context.Background(), options))
	require.Len(t, srv.Installers(), 1)

	_, ok := srv.Upload("ayon-1.2.3.exe")
	require.False(t, ok)
}

// TestUploader_ConflictAndForce refuses a different entry without --force and replaces it with --force.
func TestUploader_ConflictAndForce(t *testing.T) {
	t.Parallel()

	srv := registrytest.NewServer(registrytest.Installer{
		Filename:          "ayon-1.2.3-old.exe",
		Version:           "1.2.3",
		Platform:          "windows",
		Checksum:          "deadbeef",
		ChecksumAlgorithm: "sha256",
	})
	defer srv.Close()

	buildDir, installerPath := writeBuild(t, nil)
	reportPath := filepath.Join(t.TempDir(), "error.json")

	options := &uploader.Options{
		Settings:        settingsFor(t, &config.Config{Server: srv.URL, APIKey: registrytest.APIKey, BuildDir: buildDir}),
		Upload:          true,
		ErrorReportPath: reportPath,
	}

	err := uploader.Run(context.Background(), options)
	require.ErrorIs(t, err, installer.ErrConflict)
	require.Empty(t, srv.WriteCalls())

	payload, err := notice.NewFileRepository(reportPath).Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, payload.Message, "different values")
	require.Equal(t, installerPath, payload.InstallerPath)

	options.Force = true
	require.NoError(t, uploader.Run(context.Background(), options))

	require.Equal(t, []string{
		"DELETE /api/desktop/installers/ayon-1.2.3-old.exe",
		"POST /api/desktop/installers",
		"PUT /api/desktop/installers/ayon-1.2.3.exe",
	}, callStrings(srv.WriteCalls()))
}

// TestUploader_Failures covers configuration, authentication and availability errors.
func TestUploader_Failures(t *testing.T) {
	t.Parallel()

	srv := registrytest.NewServer()
	defer srv.Close()

	buildDir, _ := writeBuild(t, nil)

	// Build folder without metadata.
	emptyBuild := t.TempDir()
	err := uploader.Run(context.Background(), &uploader.Options{
		Settings: settingsFor(t, &config.Config{Server: srv.URL, APIKey: registrytest.APIKey, BuildDir: emptyBuild}),
	})
	require.ErrorIs(t, err, installer.ErrConfiguration)
	require.ErrorContains(t, err, "make-installer")

	// Wrong API key.
	err = uploader.Run(context.Background(), &uploader.Options{
		Settings: settingsFor(t, &config.Config{Server: srv.URL, APIKey: "wrong", BuildDir: buildDir}),
	})
	require.ErrorIs(t, err, installer.ErrAuthentication)

	// Registry failing.
	srv.FailNext(http.MethodGet, "/api/desktop/installers", http.StatusBadGateway)

	err = uploader.Run(context.Background(), &uploader.Options{
		Settings: settingsFor(t, &config.Config{Server: srv.URL, APIKey: registrytest.APIKey, BuildDir: buildDir}),
	})
	require.ErrorIs(t, err, installer.ErrRegistryUnavailable)
	require.Empty(t, srv.WriteCalls())

	// Checksum mismatch is caught before the registry is contacted.
	badBuild, _ := writeBuild(t, func(d map[string]any) {
		d["checksum"] = "00"
	})
	calls := len(srv.Calls())

	err = uploader.Run(context.Background(), &uploader.Options{
		Settings:       settingsFor(t, &config.Config{Server: srv.URL, APIKey: registrytest.APIKey, BuildDir: badBuild}),
		VerifyChecksum: true,
	})
	require.ErrorIs(t, err, installer.ErrConfiguration)
	require.Len(t, srv.Calls(), calls)
}

func callStrings(calls []registrytest.Call) []string {
	result := make([]string, 0, len(calls))
	for _, call := range calls {
		result = append(result, call.String())
	}

	return result
}
