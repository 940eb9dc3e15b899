package notice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))
	p, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, p)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns an equal payload.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "reports", "error.json")
	repo := NewFileRepository(file)

	want := FromError(errors.New("installer conflict"), "/build/ayon-1.2.3.exe")

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	require.JSONEq(t, `{"message":"installer conflict","installer_path":"/build/ayon-1.2.3.exe"}`, string(raw))

	require.Error(t, repo.Save(context.Background(), nil))
}
