package extractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/oshokin/installer-uploader/internal/archive"
	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"
	"github.com/oshokin/installer-uploader/internal/service/common"
)

var errArchiveRequired = errors.New("archive path must be provided")

// Options contains inputs for the extractor entry point.
type Options struct {
	// ArchivePath is the bundle to unpack.
	ArchivePath string
	// OutputDir receives the files; empty means the archive's folder.
	OutputDir string
	// ErrorReportPath receives the error window payload on failure.
	ErrorReportPath string
}

// Run unpacks the bundle and returns the extracted record.
func Run(ctx context.Context, opts *Options) (record *installer.Record, err error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "extractor")

	defer func() {
		if err != nil {
			logger.ErrorKV(ctx, "Extraction failed", "error", err)
			common.ReportError(ctx, opts.ErrorReportPath, err, "")
		}
	}()

	if opts.ArchivePath == "" {
		return nil, fmt.Errorf("%w: %w", installer.ErrConfiguration, errArchiveRequired)
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Dir(opts.ArchivePath)
	}

	record, err = archive.Extract(ctx, opts.ArchivePath, outputDir)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Publish the extracted installer with",
		"command", "installer-uploader upload --metadata "+record.InstallerPath+archive.SidecarExtension)

	return record, nil
}
