//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/installer-uploader/internal/config"
	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"
)

const (
	// MarkerFilename marks that a publish from the build folder is running right now.
	MarkerFilename = "installer-uploader.marker"

	// markerLifetime is the period after which a marker is considered stale.
	markerLifetime = 10 * time.Minute

	// markerRefresh is how often a held marker is touched so that long uploads
	// never look stale.
	markerRefresh = markerLifetime / 5
)

var errPublishRunning = errors.New("another publish from this build folder is running now")

// AcquireMarker creates the publish marker in buildDir and returns a release
// function that removes it. A live marker of another process is an error;
// stale markers are replaced. The marker is kept fresh until release.
func AcquireMarker(ctx context.Context, buildDir string) (func(), error) {
	return acquireMarker(ctx, buildDir, markerRefresh)
}

func acquireMarker(ctx context.Context, buildDir string, refresh time.Duration) (func(), error) {
	path := filepath.Join(buildDir, MarkerFilename)

	logger.DebugKV(ctx, "Checking for the presence of a publish marker", "path", path)

	if isPublishRunning(ctx, path) {
		return nil, fmt.Errorf("%w: %w (marker %s)", installer.ErrConfiguration, errPublishRunning, path)
	}

	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return nil, fmt.Errorf("create build folder: %w", err)
	}

	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid), config.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("write publish marker: %w", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	go keepMarkerFresh(ctx, path, refresh, stop, done)

	var once sync.Once

	release := func() {
		once.Do(func() {
			close(stop)
			<-done
		})

		contents, err := os.ReadFile(path)
		if err != nil || strings.TrimSpace(string(contents)) != pid {
			return
		}

		if err = os.Remove(path); err != nil {
			logger.WarnKV(ctx, "Unable to remove publish marker", "path", path, "error", err)
		}
	}

	return release, nil
}

// keepMarkerFresh touches the marker every refresh period until stop is closed.
func keepMarkerFresh(ctx context.Context, path string, refresh time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := time.Now()
			if err := os.Chtimes(path, now, now); err != nil {
				logger.DebugKV(ctx, "Unable to refresh publish marker", "path", path, "error", err)
			}
		}
	}
}

// isPublishRunning reports whether the marker at path belongs to a live process.
func isPublishRunning(ctx context.Context, path string) bool {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Infof(ctx, "Unable to read publish marker: %v", err)
		}

		return false
	}

	if time.Since(fileInfo.ModTime()) > markerLifetime {
		logger.Info(ctx, "The publish marker is too old, replacing it")

		return false
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid == os.Getpid() {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		logger.InfoKV(ctx, "The publish marker belongs to a finished process, replacing it", "pid", pid)

		return false
	}

	logger.WarnKV(ctx, "Publish is already running", "pid", pid, "executable", process.Executable())

	return true
}
