package integration

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/installer-uploader/internal/config"
	"github.com/oshokin/installer-uploader/internal/metadata"
	"github.com/oshokin/installer-uploader/internal/service/common"
)

// installerBody is the content of every test installer.
var installerBody = []byte("ayon-launcher-installer-binary")

// writeBuild lays out a build folder with an installer binary and metadata.json.
// Returns the build folder and the installer path.
func writeBuild(t *testing.T, mutate func(map[string]any)) (string, string) {
	t.Helper()

	buildDir := filepath.Join(t.TempDir(), "build")
	installerDir := filepath.Join(buildDir, "installer")
	require.NoError(t, os.MkdirAll(installerDir, 0o750))

	installerPath := filepath.Join(installerDir, "ayon-1.2.3.exe")
	require.NoError(t, os.WriteFile(installerPath, installerBody, 0o600))

	sum := sha256.Sum256(installerBody)
	document := map[string]any{
		"version":                "1.2.3",
		"platform":               "windows",
		"installer_path":         installerPath,
		"python_version":         "3.9.13",
		"checksum":               hex.EncodeToString(sum[:]),
		"checksum_algorithm":     "sha256",
		"size":                   len(installerBody),
		"python_modules":         map[string]string{"ayon-api": "1.0.0"},
		"runtime_python_modules": map[string]string{"certifi": "2024.2.2"},
	}

	if mutate != nil {
		mutate(document)
	}

	contents, err := json.Marshal(document)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, metadata.DefaultFilename), contents, 0o600))

	return buildDir, installerPath
}

// settingsFor saves a settings file pointing at server and returns the shared settings.
func settingsFor(t *testing.T, cfg *config.Config) common.Settings {
	t.Helper()

	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, cfg))

	return common.Settings{ConfigPath: path, NoProgress: true}
}
