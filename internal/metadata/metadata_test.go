package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/installer-uploader/internal/domain/installer"
)

// writeBuild lays out a build folder with an installer binary and metadata.json.
// Returns the build folder and the installer path.
func writeBuild(t *testing.T, mutate func(map[string]any)) (string, string) {
	t.Helper()

	buildDir := filepath.Join(t.TempDir(), "build")
	installerDir := filepath.Join(buildDir, "installer")
	require.NoError(t, os.MkdirAll(installerDir, 0o750))

	body := []byte("installer-binary")
	installerPath := filepath.Join(installerDir, "ayon-1.2.3.exe")
	require.NoError(t, os.WriteFile(installerPath, body, 0o600))

	sum := sha256.Sum256(body)
	document := map[string]any{
		"version":                "1.2.3",
		"platform":               "windows",
		"installer_path":         installerPath,
		"python_version":         "3.9.13",
		"checksum":               hex.EncodeToString(sum[:]),
		"checksum_algorithm":     "sha256",
		"size":                   len(body),
		"python_modules":         map[string]string{"ayon-api": "1.0.0"},
		"runtime_python_modules": map[string]string{},
	}

	if mutate != nil {
		mutate(document)
	}

	contents, err := json.Marshal(document)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, DefaultFilename), contents, 0o600))

	return buildDir, installerPath
}

// TestFind_FromBuildDir loads the conventional location and derives the filename.
func TestFind_FromBuildDir(t *testing.T) {
	t.Parallel()

	buildDir, installerPath := writeBuild(t, func(d map[string]any) {
		d["filename"] = "ignored.exe"
	})

	record, err := Find(context.Background(), Options{BuildDir: buildDir})
	require.NoError(t, err)
	require.Equal(t, "ayon-1.2.3.exe", record.Filename)
	require.Equal(t, installerPath, record.InstallerPath)
	require.Equal(t, int64(16), record.Size)
	require.Equal(t, map[string]string{"ayon-api": "1.0.0"}, record.PythonModules)
}

// TestFind_MissingBuildDir reports a configuration error when no build folder exists.
func TestFind_MissingBuildDir(t *testing.T) {
	t.Parallel()

	_, err := Find(context.Background(), Options{BuildDir: filepath.Join(t.TempDir(), "nope")})
	require.ErrorIs(t, err, installer.ErrConfiguration)
	require.ErrorContains(t, err, "build folder")
}

// TestFind_MissingMetadata points the user at the build steps.
func TestFind_MissingMetadata(t *testing.T) {
	t.Parallel()

	_, err := Find(context.Background(), Options{Path: filepath.Join(t.TempDir(), "metadata.json")})
	require.ErrorIs(t, err, installer.ErrConfiguration)
	require.ErrorContains(t, err, "make-installer")
}

// TestFind_MissingInstaller rejects metadata whose binary is gone.
func TestFind_MissingInstaller(t *testing.T) {
	t.Parallel()

	buildDir, installerPath := writeBuild(t, nil)
	require.NoError(t, os.Remove(installerPath))

	_, err := Find(context.Background(), Options{BuildDir: buildDir})
	require.ErrorIs(t, err, installer.ErrConfiguration)
	require.ErrorContains(t, err, "not available")
}

// TestFind_SchemaViolations covers incomplete and malformed documents.
func TestFind_SchemaViolations(t *testing.T) {
	t.Parallel()

	cases := map[string]func(map[string]any){
		"missing checksum": func(d map[string]any) { delete(d, "checksum") },
		"unknown platform": func(d map[string]any) { d["platform"] = "amiga" },
		"negative size":    func(d map[string]any) { d["size"] = -1 },
		"fractional size":  func(d map[string]any) { d["size"] = 1.5 },
		"module not text":  func(d map[string]any) { d["python_modules"] = map[string]any{"x": 1} },
		"no binary ref": func(d map[string]any) {
			delete(d, "installer_path")
		},
		"bad version": func(d map[string]any) { d["version"] = "latest" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			buildDir, _ := writeBuild(t, mutate)

			_, err := Find(context.Background(), Options{BuildDir: buildDir})
			require.ErrorIs(t, err, installer.ErrConfiguration)
		})
	}
}

// TestLoad_SidecarNextToBinary resolves the binary from filename when installer_path is absent.
func TestLoad_SidecarNextToBinary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ayon-1.2.3.exe"), []byte("bin"), 0o600))

	sidecar := `{"version":"1.2.3","platform":"windows","filename":"ayon-1.2.3.exe",
		"python_version":"3.9","checksum":"abc123","checksum_algorithm":"sha256","size":3,
		"python_modules":{},"runtime_python_modules":{}}`
	path := filepath.Join(dir, "ayon-1.2.3.exe.json")
	require.NoError(t, os.WriteFile(path, []byte(sidecar), 0o600))

	record, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "ayon-1.2.3.exe"), record.InstallerPath)
}

// TestVerify checks size and digest against the binary on disk.
func TestVerify(t *testing.T) {
	t.Parallel()

	buildDir, _ := writeBuild(t, nil)

	record, err := Find(context.Background(), Options{BuildDir: buildDir})
	require.NoError(t, err)
	require.NoError(t, Verify(context.Background(), record))

	tampered := record.Clone()
	tampered.Size++
	require.ErrorIs(t, Verify(context.Background(), tampered), errSizeMismatch)

	tampered = record.Clone()
	tampered.Checksum = hex.EncodeToString(make([]byte, sha256.Size))
	require.ErrorIs(t, Verify(context.Background(), tampered), errChecksumMismatch)

	tampered = record.Clone()
	tampered.ChecksumAlgorithm = "md5"
	require.ErrorIs(t, Verify(context.Background(), tampered), installer.ErrConfiguration)
}

// TestCryptoHash maps known algorithms and rejects others.
func TestCryptoHash(t *testing.T) {
	t.Parallel()

	h, err := CryptoHash("SHA512")
	require.NoError(t, err)
	require.Equal(t, "SHA-512", h.String())

	_, err = CryptoHash("crc32")
	require.Error(t, err)
}
