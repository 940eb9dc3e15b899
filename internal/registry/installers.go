package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/schollz/progressbar/v3"

	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"
)

// installerEntry is the registry wire shape of an installer record.
type installerEntry struct {
	Filename             string            `json:"filename"`
	Version              string            `json:"version"`
	PythonVersion        string            `json:"pythonVersion"`
	Platform             string            `json:"platform"`
	PythonModules        map[string]string `json:"pythonModules"`
	RuntimePythonModules map[string]string `json:"runtimePythonModules"`
	Checksum             string            `json:"checksum"`
	ChecksumAlgorithm    string            `json:"checksumAlgorithm"`
	Size                 int64             `json:"size"`
}

// installerList is the answer of the list call.
type installerList struct {
	Installers []installerEntry `json:"installers"`
}

func toEntry(record *installer.Record) *installerEntry {
	portable := record.Portable()

	return &installerEntry{
		Filename:             portable.Filename,
		Version:              portable.Version,
		PythonVersion:        portable.PythonVersion,
		Platform:             portable.Platform,
		PythonModules:        portable.PythonModules,
		RuntimePythonModules: portable.RuntimePythonModules,
		Checksum:             portable.Checksum,
		ChecksumAlgorithm:    portable.ChecksumAlgorithm,
		Size:                 portable.Size,
	}
}

func (e *installerEntry) toRecord() *installer.Record {
	return &installer.Record{
		Version:              e.Version,
		Platform:             e.Platform,
		Filename:             e.Filename,
		PythonVersion:        e.PythonVersion,
		Checksum:             e.Checksum,
		ChecksumAlgorithm:    e.ChecksumAlgorithm,
		Size:                 e.Size,
		PythonModules:        e.PythonModules,
		RuntimePythonModules: e.RuntimePythonModules,
	}
}

// installerPath returns the escaped path of one installer.
func installerPath(filename string) string {
	return installersPath + "/" + url.PathEscape(filename)
}

// ListInstallers returns the registry entries in the order the registry sends them.
func (s *Session) ListInstallers(ctx context.Context) ([]*installer.Record, error) {
	var answer installerList

	if err := s.call(ctx, "list installers", http.MethodGet, installersPath, s.auth, nil, &answer); err != nil {
		return nil, err
	}

	records := make([]*installer.Record, 0, len(answer.Installers))
	for i := range answer.Installers {
		records = append(records, answer.Installers[i].toRecord())
	}

	logger.DebugKV(ctx, "Listed registry installers", "count", len(records))

	return records, nil
}

// CreateInstaller registers record. A duplicate rejected by the registry
// surfaces as installer.ErrConflict.
func (s *Session) CreateInstaller(ctx context.Context, record *installer.Record) error {
	return s.call(ctx, "create installer "+record.Filename, http.MethodPost, installersPath, s.auth, toEntry(record), nil)
}

// DeleteInstaller removes the registry entry with the given filename.
func (s *Session) DeleteInstaller(ctx context.Context, filename string) error {
	return s.call(ctx, "delete installer "+filename, http.MethodDelete, installerPath(filename), s.auth, nil, nil)
}

// UploadInstaller streams the file at localPath to the registry under filename.
// The upload is bounded only by ctx; a failed upload restarts from the beginning.
func (s *Session) UploadInstaller(ctx context.Context, localPath, filename string) error {
	action := "upload installer " + filename

	file, err := os.Open(filepath.Clean(localPath))
	if err != nil {
		return fmt.Errorf("%s: %w: %w", action, installer.ErrConfiguration, err)
	}

	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", action, installer.ErrConfiguration, err)
	}

	// The body func runs once to measure the request and again for every
	// attempt, so each call returns a fresh reader that is not an io.Closer.
	bar := s.progressBar(info.Size(), filename)
	body := retryablehttp.ReaderFunc(func() (io.Reader, error) {
		section := io.NewSectionReader(file, 0, info.Size())
		if bar == nil {
			return section, nil
		}

		bar.Reset()

		return io.TeeReader(section, bar), nil
	})

	req, err := s.newRequest(ctx, http.MethodPut, installerPath(filename), body, s.auth)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	logger.InfoKV(ctx, "Upload started", "path", localPath, "size", info.Size())

	resp, err := s.do(req, action)
	if err != nil {
		return err
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	logger.InfoKV(ctx, "Upload finished", "filename", filename)

	return nil
}

// progressBar returns the upload progress bar, or nil when progress is off.
func (s *Session) progressBar(size int64, filename string) *progressbar.ProgressBar {
	if s.progress == nil {
		return nil
	}

	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(s.progress),
		progressbar.OptionSetDescription("uploading "+filename),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}
