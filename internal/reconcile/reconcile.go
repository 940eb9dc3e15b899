package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"
)

// Registry is the part of the registry client the reconciler drives.
type Registry interface {
	ListInstallers(ctx context.Context) ([]*installer.Record, error)
	CreateInstaller(ctx context.Context, record *installer.Record) error
	DeleteInstaller(ctx context.Context, filename string) error
	UploadInstaller(ctx context.Context, localPath, filename string) error
}

// Options tune Run.
type Options struct {
	// Force replaces a registry entry that differs from the local record.
	Force bool
	// Upload sends the installer binary after the record is created.
	Upload bool
}

// Decision is the outcome of Plan.
type Decision struct {
	// Action is what has to happen on the registry.
	Action installer.Action
	// Existing is the matched registry entry, nil for ActionCreate.
	Existing *installer.Record
	// Duplicates counts later entries with the same key that were ignored.
	Duplicates int
}

// Result reports what Run did.
type Result struct {
	Decision
	// Uploaded is true when the binary was sent.
	Uploaded bool
}

var (
	errNilRecord       = errors.New("local installer record is required")
	errDifferentValues = errors.New("installer already exists on server but with different values, use --force to replace it")
)

// Plan compares local against the registry entries. The first entry with the
// same platform and version is authoritative.
func Plan(local *installer.Record, remote []*installer.Record, force bool) (Decision, error) {
	if local == nil {
		return Decision{}, fmt.Errorf("%w: %w", installer.ErrConfiguration, errNilRecord)
	}

	var decision Decision

	key := local.Key()

	for _, entry := range remote {
		if entry == nil || entry.Key() != key {
			continue
		}

		if decision.Existing == nil {
			decision.Existing = entry

			continue
		}

		decision.Duplicates++
	}

	switch {
	case decision.Existing == nil:
		decision.Action = installer.ActionCreate
	case decision.Existing.Equal(local):
		decision.Action = installer.ActionNoop
	case force:
		decision.Action = installer.ActionReplace
	default:
		return decision, fmt.Errorf("%s: %w: %w", key, installer.ErrConflict, errDifferentValues)
	}

	return decision, nil
}

// Run lists the registry, plans and applies the change. Errors stop the run
// immediately; nothing already written is rolled back.
func Run(ctx context.Context, registry Registry, local *installer.Record, opts Options) (*Result, error) {
	if local == nil {
		return nil, fmt.Errorf("%w: %w", installer.ErrConfiguration, errNilRecord)
	}

	ctx = logger.WithKV(ctx, "installer", local.Key().String())

	remote, err := registry.ListInstallers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list installers: %w", err)
	}

	decision, err := Plan(local, remote, opts.Force)
	if decision.Duplicates > 0 {
		logger.WarnKV(ctx, "Registry holds duplicate installers, using the first one",
			"duplicates", decision.Duplicates,
			"filename", decision.Existing.Filename)
	}

	if err != nil {
		return nil, err
	}

	result := &Result{Decision: decision}

	if !decision.Action.Writes() {
		logger.Info(ctx, "Installer already up to date")

		return result, nil
	}

	if decision.Action == installer.ActionReplace {
		logger.InfoKV(ctx, "Replacing installer with different values", "filename", decision.Existing.Filename)

		if err = registry.DeleteInstaller(ctx, decision.Existing.Filename); err != nil {
			return nil, fmt.Errorf("delete installer: %w", err)
		}
	}

	if err = registry.CreateInstaller(ctx, local.Portable()); err != nil {
		return nil, fmt.Errorf("create installer: %w", err)
	}

	logger.InfoKV(ctx, "Installer record created", "filename", local.Filename, "action", decision.Action)

	if !opts.Upload {
		return result, nil
	}

	if err = registry.UploadInstaller(ctx, local.InstallerPath, local.Filename); err != nil {
		return nil, fmt.Errorf("upload installer: %w", err)
	}

	result.Uploaded = true

	return result, nil
}
