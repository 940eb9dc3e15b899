//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/installer-uploader/internal/domain/installer"
)

// TestAcquireMarker_CreatesAndReleases writes the own pid and removes it on release.
func TestAcquireMarker_CreatesAndReleases(t *testing.T) {
	t.Parallel()

	buildDir := filepath.Join(t.TempDir(), "build")

	release, err := AcquireMarker(context.Background(), buildDir)
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(buildDir, MarkerFilename))
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), string(contents))

	release()

	_, err = os.Stat(filepath.Join(buildDir, MarkerFilename))
	require.True(t, os.IsNotExist(err))
}

// TestAcquireMarker_LiveProcess refuses a fresh marker of a running process.
func TestAcquireMarker_LiveProcess(t *testing.T) {
	t.Parallel()

	buildDir := t.TempDir()
	path := filepath.Join(buildDir, MarkerFilename)

	// The parent of the test binary is alive for the whole test.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	_, err := AcquireMarker(context.Background(), buildDir)
	require.ErrorIs(t, err, installer.ErrConfiguration)

	// An old marker is stale regardless of the process.
	old := time.Now().Add(-2 * markerLifetime)
	require.NoError(t, os.Chtimes(path, old, old))

	release, err := AcquireMarker(context.Background(), buildDir)
	require.NoError(t, err)

	release()
}

// TestAcquireMarker_Garbage replaces markers that hold no usable pid.
func TestAcquireMarker_Garbage(t *testing.T) {
	t.Parallel()

	buildDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, MarkerFilename), []byte("not a pid"), 0o600))

	release, err := AcquireMarker(context.Background(), buildDir)
	require.NoError(t, err)

	release()
}

// TestAcquireMarker_StaysFresh keeps touching a held marker so a long publish never turns stale.
func TestAcquireMarker_StaysFresh(t *testing.T) {
	t.Parallel()

	buildDir := t.TempDir()
	path := filepath.Join(buildDir, MarkerFilename)

	release, err := acquireMarker(context.Background(), buildDir, 10*time.Millisecond)
	require.NoError(t, err)

	old := time.Now().Add(-2 * markerLifetime)
	require.NoError(t, os.Chtimes(path, old, old))

	require.Eventually(t, func() bool {
		info, statErr := os.Stat(path)

		return statErr == nil && time.Since(info.ModTime()) < markerLifetime
	}, 5*time.Second, 10*time.Millisecond)

	release()
	release()

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
