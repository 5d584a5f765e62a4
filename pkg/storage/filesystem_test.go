package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("quiz_marks.csv", []byte("Student ID,Quiz,Total\n"))
	require.NoError(t, err)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "Student ID,Quiz,Total\n", string(body))
}

func TestLocalStorageConfinesPaths(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(base, "exports"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(base, "secret.txt"), []byte("x"), 0o644))

	_, err = store.Open("../secret.txt")
	assert.Error(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save("old.xlsx", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("new.xlsx", []byte("new"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.baseDir, "old.xlsx"), past, past))

	removed, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.xlsx"}, removed)
}

func TestLocalStorageRejectsEmptyName(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save("", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = store.Open("..")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestLocalStorageSaveConfinesAndLeavesNoPartials(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	rel, err := store.Save("../../escape.csv", []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, "escape.csv", rel)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "escape.csv", entries[0].Name())
}
