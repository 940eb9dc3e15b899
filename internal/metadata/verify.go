package metadata

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"

	// Register the hash functions the registry accepts.
	_ "crypto/sha256"
	_ "crypto/sha512"
)

var (
	errUnsupportedAlgorithm = errors.New("unsupported checksum algorithm")
	errSizeMismatch         = errors.New("size mismatch")
	errChecksumMismatch     = errors.New("checksum mismatch")
)

// Digest converts the record checksum into a digest.Digest.
func Digest(record *installer.Record) (digest.Digest, error) {
	algorithm := digest.Algorithm(strings.ToLower(record.ChecksumAlgorithm))
	if !algorithm.Available() {
		return "", fmt.Errorf("%q: %w", record.ChecksumAlgorithm, errUnsupportedAlgorithm)
	}

	d := digest.NewDigestFromEncoded(algorithm, strings.ToLower(record.Checksum))
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("checksum %q: %w", record.Checksum, err)
	}

	return d, nil
}

// CryptoHash maps a checksum algorithm name to its crypto.Hash.
func CryptoHash(algorithm string) (crypto.Hash, error) {
	switch digest.Algorithm(strings.ToLower(algorithm)) {
	case digest.SHA256:
		return crypto.SHA256, nil
	case digest.SHA384:
		return crypto.SHA384, nil
	case digest.SHA512:
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%q: %w", algorithm, errUnsupportedAlgorithm)
	}
}

// Verify checks that the installer on disk matches the record's size and checksum.
func Verify(ctx context.Context, record *installer.Record) error {
	expected, err := Digest(record)
	if err != nil {
		return fmt.Errorf("%w: %w", installer.ErrConfiguration, err)
	}

	file, err := os.Open(filepath.Clean(record.InstallerPath))
	if err != nil {
		return fmt.Errorf("%w: open installer: %w", installer.ErrConfiguration, err)
	}

	defer func() {
		_ = file.Close()
	}()

	verifier := expected.Verifier()

	size, err := io.Copy(verifier, file)
	if err != nil {
		return fmt.Errorf("%w: hash installer: %w", installer.ErrConfiguration, err)
	}

	if size != record.Size {
		return fmt.Errorf("%w: %s is %d bytes, metadata says %d: %w",
			installer.ErrConfiguration, record.Filename, size, record.Size, errSizeMismatch)
	}

	if !verifier.Verified() {
		return fmt.Errorf("%w: %s does not match %s: %w",
			installer.ErrConfiguration, record.Filename, expected, errChecksumMismatch)
	}

	logger.InfoKV(ctx, "Installer checksum verified", "filename", record.Filename, "digest", expected.String())

	return nil
}
