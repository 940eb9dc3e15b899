package uploader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"
	"github.com/oshokin/installer-uploader/internal/metadata"
	"github.com/oshokin/installer-uploader/internal/reconcile"
	"github.com/oshokin/installer-uploader/internal/service/common"
)

// Options are inputs accepted by the uploader entry point.
type Options struct {
	// Settings select the settings file, flag overrides and progress output.
	Settings common.Settings
	// MetadataPath overrides <build dir>/metadata.json.
	MetadataPath string
	// Force replaces a registry entry with different values.
	Force bool
	// Upload sends the binary after the record is created.
	Upload bool
	// VerifyChecksum hashes the installer before contacting the registry.
	VerifyChecksum bool
	// ErrorReportPath receives the error window payload on failure.
	ErrorReportPath string
}

// runner holds the state of a single publish.
type runner struct {
	opts   *Options
	record *installer.Record
	actor  *common.Actor
}

// Run executes the publish workflow and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) (err error) {
	// Set context with logger name and a run id for tracking.
	ctx = logger.WithName(ctx, "uploader")
	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	r := &runner{opts: opts}

	defer func() {
		if err == nil {
			return
		}

		var installerPath string
		if r.record != nil {
			installerPath = r.record.InstallerPath
		}

		common.ReportError(ctx, opts.ErrorReportPath, err, installerPath)
	}()

	result, err := r.run(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Publish failed", "error", err)

		return err
	}

	logger.InfoKV(ctx, "Publish completed",
		"action", result.Action,
		"uploaded", result.Uploaded,
		"filename", r.record.Filename)

	return nil
}

func (r *runner) run(ctx context.Context) (*reconcile.Result, error) {
	cfg, err := common.ResolveConfig(&r.opts.Settings)
	if err != nil {
		return nil, err
	}

	r.record, err = metadata.Find(ctx, metadata.Options{Path: r.opts.MetadataPath, BuildDir: cfg.BuildDir})
	if err != nil {
		return nil, err
	}

	if r.opts.VerifyChecksum {
		if err = metadata.Verify(ctx, r.record); err != nil {
			return nil, err
		}
	}

	markerDir := cfg.BuildDir
	if r.opts.MetadataPath != "" {
		markerDir = filepath.Dir(r.opts.MetadataPath)
	}

	release, err := common.AcquireMarker(ctx, markerDir)
	if err != nil {
		return nil, err
	}

	defer release()

	if r.actor, err = common.DetectActor(); err != nil {
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	} else {
		ctx = logger.WithKV(ctx, "actor", r.actor.String())
	}

	session, err := common.ConnectRegistry(ctx, cfg, &r.opts.Settings)
	if err != nil {
		return nil, err
	}

	result, err := reconcile.Run(ctx, session, r.record, reconcile.Options{
		Force:  r.opts.Force,
		Upload: r.opts.Upload,
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", r.record.Key(), err)
	}

	return result, nil
}
