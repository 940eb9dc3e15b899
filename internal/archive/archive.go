package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"
)

const (
	// Extension is the required suffix of bundle filenames.
	Extension = ".zip"
	// SidecarExtension is appended to the installer filename for the metadata entry.
	SidecarExtension = ".json"

	sidecarMode   os.FileMode = 0o644
	binaryMode    os.FileMode = 0o755
	directoryMode os.FileMode = 0o755

	namePrefix = "ayon-server-installer"
)

// entryTime is stamped on every entry so equal inputs give equal archives.
var entryTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	errNoInstallerPath = errors.New("installer path is required")
	errBadExtension    = errors.New("archive filename must end with " + Extension)
	errBadFilename     = errors.New("archive filename must not contain directories")
	errNoSidecar       = errors.New("archive has no metadata sidecar")
	errNoBinary        = errors.New("archive has no installer binary")
	errUnexpectedEntry = errors.New("archive holds an unexpected entry")
	errSidecarFilename = errors.New("sidecar filename does not match its entry")
	errUnknownPlatform = errors.New("sidecar names an unknown platform")
)

// DefaultName returns the bundle filename for record.
func DefaultName(record *installer.Record) string {
	return fmt.Sprintf("%s-%s-%s%s", namePrefix, record.Platform, record.Version, Extension)
}

// OutputPath resolves where the bundle for record is written. An empty
// outputDir means the installer's directory; an empty filename means DefaultName.
func OutputPath(record *installer.Record, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = filepath.Dir(record.InstallerPath)
	}

	if filename == "" {
		filename = DefaultName(record)
	}

	if !strings.HasSuffix(strings.ToLower(filename), Extension) {
		return "", fmt.Errorf("%w: %q: %w", installer.ErrConfiguration, filename, errBadExtension)
	}

	if filepath.Base(filename) != filename {
		return "", fmt.Errorf("%w: %q: %w", installer.ErrConfiguration, filename, errBadFilename)
	}

	return filepath.Join(outputDir, filename), nil
}

// Create writes the bundle for record to outputPath. The archive holds the
// sidecar <filename>.json first and the binary <filename> second.
func Create(ctx context.Context, record *installer.Record, outputPath string) error {
	if record == nil || record.InstallerPath == "" {
		return fmt.Errorf("%w: %w", installer.ErrConfiguration, errNoInstallerPath)
	}

	sidecar, err := json.MarshalIndent(record.Portable(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}

	binary, err := os.Open(filepath.Clean(record.InstallerPath))
	if err != nil {
		return fmt.Errorf("%w: open installer: %w", installer.ErrConfiguration, err)
	}

	defer func() {
		_ = binary.Close()
	}()

	outputDir := filepath.Dir(outputPath)
	if err = os.MkdirAll(outputDir, directoryMode); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(outputDir, filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	writer := zip.NewWriter(tmp)

	if err = writeEntry(writer, record.Filename+SidecarExtension, sidecarMode, bytes.NewReader(sidecar)); err != nil {
		return err
	}

	if err = writeEntry(writer, record.Filename, binaryMode, binary); err != nil {
		return err
	}

	if err = writer.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	if err = os.Rename(tmpName, outputPath); err != nil {
		return fmt.Errorf("move archive into place: %w", err)
	}

	logger.InfoKV(ctx, "Server package created", "path", outputPath)

	return nil
}

func writeEntry(writer *zip.Writer, name string, mode os.FileMode, r io.Reader) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: entryTime,
	}
	header.SetMode(mode)

	w, err := writer.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}

	if _, err = io.Copy(w, r); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}
