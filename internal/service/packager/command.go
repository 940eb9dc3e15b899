package packager

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/oshokin/installer-uploader/internal/archive"
	"github.com/oshokin/installer-uploader/internal/logger"
	"github.com/oshokin/installer-uploader/internal/metadata"
	"github.com/oshokin/installer-uploader/internal/service/common"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// Settings select the settings file; only the build folder is used.
	Settings common.Settings
	// MetadataPath overrides <build dir>/metadata.json.
	MetadataPath string
	// OutputDir is where the bundle goes; empty means the installer's folder.
	OutputDir string
	// Filename names the bundle; it must end with .zip.
	Filename string
	// VerifyChecksum hashes the installer before packing it.
	VerifyChecksum bool
	// ErrorReportPath receives the error window payload on failure.
	ErrorReportPath string
}

// Run executes the packaging workflow and returns the bundle path.
func Run(ctx context.Context, opts *Options) (outputPath string, err error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "packager")
	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	var installerPath string

	defer func() {
		if err != nil {
			logger.ErrorKV(ctx, "Packager failed", "error", err)
			common.ReportError(ctx, opts.ErrorReportPath, err, installerPath)
		}
	}()

	cfg, err := common.ResolveLocalConfig(&opts.Settings)
	if err != nil {
		return "", err
	}

	record, err := metadata.Find(ctx, metadata.Options{Path: opts.MetadataPath, BuildDir: cfg.BuildDir})
	if err != nil {
		return "", err
	}

	installerPath = record.InstallerPath

	if opts.VerifyChecksum {
		if err = metadata.Verify(ctx, record); err != nil {
			return "", err
		}
	}

	outputPath, err = archive.OutputPath(record, opts.OutputDir, opts.Filename)
	if err != nil {
		return "", err
	}

	if err = archive.Create(ctx, record, outputPath); err != nil {
		return "", err
	}

	printNextSteps(ctx, outputPath)

	return outputPath, nil
}

// printNextSteps logs human-readable guidance for the created bundle.
func printNextSteps(ctx context.Context, outputPath string) {
	var builder strings.Builder

	builder.WriteString("Copy ")
	builder.WriteString(outputPath)
	builder.WriteString(" to a machine that can reach the server and run:\n")
	builder.WriteString("installer-uploader extract-server-package ")
	builder.WriteString(outputPath)
	builder.WriteString(" -o <folder>\n")
	builder.WriteString("installer-uploader upload --metadata <folder>/<installer>.json")

	logger.Info(ctx, builder.String())
}
