package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/installer-uploader/internal/config"
	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/registry/registrytest"
	"github.com/oshokin/installer-uploader/internal/service/configure"
)

// TestConfigure_VerifiesAndSaves writes settings only after the registry accepts them.
func TestConfigure_VerifiesAndSaves(t *testing.T) {
	t.Parallel()

	srv := registrytest.NewServer()
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	err := configure.Run(context.Background(), &configure.Options{
		ConfigPath: path,
		Values:     config.Config{Server: srv.URL, APIKey: "wrong"},
	})
	require.ErrorIs(t, err, installer.ErrAuthentication)

	_, err = config.Load(path)
	require.Error(t, err)

	err = configure.Run(context.Background(), &configure.Options{
		ConfigPath: path,
		Values:     config.Config{Server: srv.URL + "/", APIKey: registrytest.APIKey},
	})
	require.NoError(t, err)

	// A later call keeps the stored values it does not override.
	err = configure.Run(context.Background(), &configure.Options{
		ConfigPath: path,
		Values:     config.Config{BuildDir: "out"},
		SkipCheck:  true,
	})
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, srv.URL, cfg.Server)
	require.Equal(t, registrytest.APIKey, cfg.APIKey)
	require.Equal(t, "out", cfg.BuildDir)
}
