package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWritesPair(t *testing.T) {
	dir := t.TempDir()

	pair, err := Create(dir, "add tolerance rules")
	require.NoError(t, err)

	assert.FileExists(t, pair.UpPath)
	assert.FileExists(t, pair.DownPath)
	assert.Contains(t, filepath.Base(pair.UpPath), "add_tolerance_rules")

	content, err := os.ReadFile(pair.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "add tolerance rules")
}

func TestListReturnsBaseNames(t *testing.T) {
	dir := t.TempDir()

	_, err := Create(dir, "first")
	require.NoError(t, err)

	names, err := List(dir)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Contains(t, names[0], "first")
}

func TestListMissingDirectory(t *testing.T) {
	names, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Add Match Results", "add_match_results"},
		{"already_snake", "already_snake"},
		{"trailing space ", "trailing_space"},
		{"mixed-Separators_here", "mixed_separators_here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), tt.in)
	}
}
