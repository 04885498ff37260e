package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestStore_List(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "reports/2023/annual.pdf", "a")
	writeFile(t, root, "reports/q3.txt", "b")
	writeFile(t, root, "other/notes.txt", "c")

	s, err := New(root)
	require.NoError(t, err)

	all, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"other/notes.txt", "reports/2023/annual.pdf", "reports/q3.txt"}, all)

	reports, err := s.List(context.Background(), "reports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/2023/annual.pdf", "reports/q3.txt"}, reports)
}

func TestStore_Get(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "reports/q3.txt", "quarterly")

	s, err := New(root)
	require.NoError(t, err)

	rc, err := s.Get(context.Background(), "reports/q3.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "quarterly", string(data))
}

func TestStore_Get_Errors(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Get(context.Background(), "../escape.pdf")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNew_NotADirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.txt", "x")

	_, err := New(filepath.Join(root, "file.txt"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(filepath.Join(root, "nope"))
	assert.Error(t, err)
}
