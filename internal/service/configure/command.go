package configure

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/installer-uploader/internal/config"
	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"
	"github.com/oshokin/installer-uploader/internal/service/common"
)

// Options contains inputs for the configure entry point.
type Options struct {
	// ConfigPath is where the settings are written; empty means the default file.
	ConfigPath string
	// Values override what the settings file already holds.
	Values config.Config
	// SkipCheck writes the settings without contacting the registry.
	SkipCheck bool
}

// Run merges, verifies and saves the settings.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "configure")

	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigFilename
	}

	base, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %w", installer.ErrConfiguration, err)
		}

		base = new(config.Config)
	}

	cfg := config.Merge(base, &opts.Values)
	if err = config.Validate(cfg); err != nil {
		return fmt.Errorf("%w: %w", installer.ErrConfiguration, err)
	}

	if !opts.SkipCheck {
		if _, err = common.ConnectRegistry(ctx, cfg, &common.Settings{NoProgress: true}); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Verified connection to registry", "server", cfg.Server)
	}

	if err = config.Save(path, cfg); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	logger.InfoKV(ctx, "Settings saved", "path", path)

	return nil
}
