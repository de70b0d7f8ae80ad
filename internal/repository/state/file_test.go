package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/express-cli/internal/domain/express"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "version"))

	v, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, domain.ErrState)
	require.Empty(t, v)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save writes one newline-terminated line and Load reads it back.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "version")
	repo := NewFileRepository(file)

	require.NoError(t, repo.Save(context.Background(), "v1.0.0"))
	require.NoError(t, repo.Save(context.Background(), "v2.0.0"))

	contents, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, "v2.0.0\n", string(contents))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "v2.0.0", got)

	// No temporary or backup files are left next to the version file.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestFileRepository_Load_TrimsAndEmpty checks whitespace handling and empty files.
func TestFileRepository_Load_TrimsAndEmpty(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "version")
	repo := NewFileRepository(file)

	require.NoError(t, os.WriteFile(file, []byte("  v1.2.3 \r\nignored\n"), 0o600))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "v1.2.3", got)

	require.NoError(t, os.WriteFile(file, []byte("\n"), 0o600))

	_, err = repo.Load(context.Background())
	require.ErrorIs(t, err, ErrEmpty)
}

// TestFileRepository_Save_Rejects refuses versions that would break the one-line format.
func TestFileRepository_Save_Rejects(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "version"))

	require.Error(t, repo.Save(context.Background(), ""))
	require.Error(t, repo.Save(context.Background(), "v1\nv2"))

	err := NewFileRepository(filepath.Join(t.TempDir(), "missing", "version")).Save(context.Background(), "v1")
	require.ErrorIs(t, err, domain.ErrFilesystem)
}
