package filemanager

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("Timestamp\n"), 0o600))
}

func TestListPending(t *testing.T) {
	raw := t.TempDir()
	touch(t, filepath.Join(raw, "march.csv"))
	touch(t, filepath.Join(raw, "february.csv"))
	touch(t, filepath.Join(raw, "notes.txt"))
	require.NoError(t, os.Mkdir(filepath.Join(raw, "folder.csv"), 0o755))

	m := New(raw, filepath.Join(t.TempDir(), "archived"), "")
	files, err := m.ListPending()
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(raw, "february.csv"),
		filepath.Join(raw, "march.csv"),
	}, files)
}

func TestListPendingMissingDir(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "nope"), t.TempDir(), "*.csv")
	files, err := m.ListPending()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListPendingBadPattern(t *testing.T) {
	m := New(t.TempDir(), t.TempDir(), "[")
	_, err := m.ListPending()
	assert.Error(t, err)
}

func TestArchive(t *testing.T) {
	raw := t.TempDir()
	archive := filepath.Join(t.TempDir(), "data", "archived")
	src := filepath.Join(raw, "january.csv")
	touch(t, src)

	m := New(raw, archive, "")
	target, err := m.Archive(src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(archive, "january.csv"), target)
	assert.FileExists(t, target)
	assert.NoFileExists(t, src)

	pending, err := m.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestArchiveRefusesToOverwrite(t *testing.T) {
	raw := t.TempDir()
	archive := t.TempDir()
	src := filepath.Join(raw, "january.csv")
	touch(t, src)
	require.NoError(t, os.WriteFile(filepath.Join(archive, "january.csv"), []byte("older"), 0o600))

	m := New(raw, archive, "")
	_, err := m.Archive(src)
	require.Error(t, err)

	var archiveErr *ArchiveError
	require.True(t, errors.As(err, &archiveErr))
	assert.True(t, errors.Is(err, ErrArchiveExists))
	assert.FileExists(t, src, "file stays pending")

	older, err := os.ReadFile(filepath.Join(archive, "january.csv"))
	require.NoError(t, err)
	assert.Equal(t, "older", string(older))
}

func TestArchiveMissingSource(t *testing.T) {
	m := New(t.TempDir(), t.TempDir(), "")
	_, err := m.Archive(filepath.Join(m.RawDir, "gone.csv"))

	var archiveErr *ArchiveError
	require.True(t, errors.As(err, &archiveErr))
}
