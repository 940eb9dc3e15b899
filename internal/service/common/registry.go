//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/installer-uploader/internal/config"
	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/registry"
)

// Settings is the connection input shared by the registry workflows.
type Settings struct {
	// ConfigPath points at the YAML settings file; empty means the default file.
	ConfigPath string
	// Overrides are flag values that win over the settings file.
	Overrides config.Config
	// NoProgress disables the upload progress bar.
	NoProgress bool
	// ProgressOutput receives the progress bar; nil means stderr.
	ProgressOutput io.Writer
}

// ResolveConfig loads the settings file, applies overrides and validates the result.
func ResolveConfig(settings *Settings) (*config.Config, error) {
	base, err := config.Load(settings.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", installer.ErrConfiguration, err)
	}

	cfg := config.Merge(base, &settings.Overrides)
	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", installer.ErrConfiguration, err)
	}

	return cfg, nil
}

// ResolveLocalConfig is ResolveConfig for workflows that never contact the
// registry: the server URL is not required.
func ResolveLocalConfig(settings *Settings) (*config.Config, error) {
	base, err := config.Load(settings.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", installer.ErrConfiguration, err)
	}

	cfg := config.Merge(base, &settings.Overrides)
	config.ApplyDefaults(cfg)

	return cfg, nil
}

// ConnectRegistry opens an authenticated registry session for cfg.
func ConnectRegistry(ctx context.Context, cfg *config.Config, settings *Settings) (*registry.Session, error) {
	opts := []registry.Option{registry.WithCallTimeout(cfg.Timeout)}

	if !settings.NoProgress {
		output := settings.ProgressOutput
		if output == nil {
			output = os.Stderr
		}

		opts = append(opts, registry.WithProgressOutput(output))
	}

	creds := registry.Credentials{
		APIKey:   cfg.APIKey,
		Username: cfg.Username,
		Password: cfg.Password,
	}

	session, err := registry.Connect(ctx, cfg.Server, creds, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Server, err)
	}

	return session, nil
}
