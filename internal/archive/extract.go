package archive

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	goupdate "github.com/doitdistributed/go-update"
	"github.com/klauspost/compress/zip"

	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"
	"github.com/oshokin/installer-uploader/internal/metadata"
)

// maxSidecarSize caps how much of the sidecar entry is decoded.
const maxSidecarSize = 1 << 20

// Extract unpacks the bundle at archivePath into destDir and returns the
// record described by its sidecar, bound to the extracted binary.
// The binary is written atomically and only when it matches the sidecar checksum.
func Extract(ctx context.Context, archivePath, destDir string) (*installer.Record, error) {
	reader, err := zip.OpenReader(filepath.Clean(archivePath))
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %w", installer.ErrConfiguration, err)
	}

	defer func() {
		_ = reader.Close()
	}()

	sidecarEntry, binaryEntry, err := splitEntries(reader.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", installer.ErrConfiguration, archivePath, err)
	}

	sidecar, err := readEntry(sidecarEntry, maxSidecarSize)
	if err != nil {
		return nil, fmt.Errorf("%w: read sidecar: %w", installer.ErrConfiguration, err)
	}

	var record installer.Record
	if err = json.Unmarshal(sidecar, &record); err != nil {
		return nil, fmt.Errorf("%w: decode sidecar: %w", installer.ErrConfiguration, err)
	}

	if record.Filename != binaryEntry.Name || filepath.Base(record.Filename) != record.Filename {
		return nil, fmt.Errorf("%w: %q: %w", installer.ErrConfiguration, record.Filename, errSidecarFilename)
	}

	if !installer.IsKnownPlatform(record.Platform) {
		return nil, fmt.Errorf("%w: %q: %w", installer.ErrConfiguration, record.Platform, errUnknownPlatform)
	}

	if err = os.MkdirAll(destDir, directoryMode); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	sidecarPath, err := targetPath(destDir, sidecarEntry.Name)
	if err != nil {
		return nil, err
	}

	binaryPath, err := targetPath(destDir, binaryEntry.Name)
	if err != nil {
		return nil, err
	}

	if err = writeBinary(ctx, binaryEntry, binaryPath, &record); err != nil {
		return nil, err
	}

	if err = os.WriteFile(sidecarPath, sidecar, sidecarMode); err != nil {
		return nil, fmt.Errorf("write sidecar: %w", err)
	}

	logger.InfoKV(ctx, "Server package extracted", "archive", archivePath, "destination", destDir)

	return record.WithInstallerPath(filepath.Join(destDir, binaryEntry.Name)), nil
}

// splitEntries finds the sidecar and binary entries and rejects anything else.
func splitEntries(files []*zip.File) (*zip.File, *zip.File, error) {
	byName := make(map[string]*zip.File, len(files))
	for _, file := range files {
		byName[file.Name] = file
	}

	var (
		sidecar, binary *zip.File
		hasJSON         bool
	)

	for _, file := range files {
		name, ok := strings.CutSuffix(file.Name, SidecarExtension)
		if !ok {
			continue
		}

		hasJSON = true

		if candidate, found := byName[name]; found {
			sidecar, binary = file, candidate

			break
		}
	}

	switch {
	case sidecar == nil && hasJSON:
		return nil, nil, errNoBinary
	case sidecar == nil:
		return nil, nil, errNoSidecar
	case len(files) != 2:
		return nil, nil, errUnexpectedEntry
	}

	return sidecar, binary, nil
}

func readEntry(file *zip.File, limit int64) ([]byte, error) {
	r, err := file.Open()
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = r.Close()
	}()

	return io.ReadAll(io.LimitReader(r, limit))
}

// targetPath joins name under destDir without letting it escape.
func targetPath(destDir, name string) (string, error) {
	joined, err := securejoin.SecureJoin(destDir, name)
	if err != nil {
		return "", fmt.Errorf("%w: entry %q: %w", installer.ErrConfiguration, name, err)
	}

	path, err := platformPath(joined)
	if err != nil {
		return "", fmt.Errorf("%w: entry %q: %w", installer.ErrConfiguration, name, err)
	}

	return path, nil
}

// writeBinary replaces path with the entry contents after checking them
// against the record checksum.
func writeBinary(ctx context.Context, file *zip.File, path string, record *installer.Record) error {
	hash, err := metadata.CryptoHash(record.ChecksumAlgorithm)
	if err != nil {
		return fmt.Errorf("%w: %w", installer.ErrConfiguration, err)
	}

	checksum, err := hex.DecodeString(record.Checksum)
	if err != nil {
		return fmt.Errorf("%w: checksum %q: %w", installer.ErrConfiguration, record.Checksum, err)
	}

	var created bool

	if _, err = os.Stat(path); os.IsNotExist(err) {
		placeholder, createErr := os.Create(filepath.Clean(path))
		if createErr != nil {
			return fmt.Errorf("create %s: %w", path, createErr)
		}

		_ = placeholder.Close()
		created = true
	}

	r, err := file.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", installer.ErrConfiguration, file.Name, err)
	}

	defer func() {
		_ = r.Close()
	}()

	logger.DebugKV(ctx, "Applying installer binary", "path", path)

	err = goupdate.Apply(r, goupdate.Options{
		TargetPath: path,
		TargetMode: binaryMode,
		Checksum:   checksum,
		Hash:       hash,
	})
	if err != nil {
		if rollbackErr := goupdate.RollbackError(err); rollbackErr != nil {
			logger.ErrorKV(ctx, "Failed to restore previous binary", "path", path, "error", rollbackErr)
		}

		if created {
			_ = os.Remove(path)
		}

		return fmt.Errorf("%w: write %s: %w", installer.ErrConfiguration, file.Name, err)
	}

	oldPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".old")
	if _, err = os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	return nil
}
