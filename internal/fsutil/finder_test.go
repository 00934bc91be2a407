package fsutil

import (
	"path/filepath"
	"testing"

	"github.com/specialistvlad/modload/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"a.hcl":         "",
		"nested/b.hcl":  "",
		"nested/c.yaml": "",
	})

	files, err := FindFilesByExtension(dir, ".hcl")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.hcl"),
		filepath.Join(dir, "nested", "b.hcl"),
	}, files)

	assert.Panics(t, func() { _, _ = FindFilesByExtension(dir, "") })
}

func TestExpandEntries(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"app.hcl":           "",
		"lib/b.hcl":         "",
		"lib/a.hcl":         "",
		"lib/deep/c.hcl":    "",
		"lib/deep/notes.md": "",
	})
	join := func(parts ...string) string { return filepath.Join(append([]string{dir}, parts...)...) }

	t.Run("file", func(t *testing.T) {
		got, err := ExpandEntries([]string{join("app.hcl")}, ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{join("app.hcl")}, got)
	})

	t.Run("directory is sorted", func(t *testing.T) {
		got, err := ExpandEntries([]string{join("lib")}, ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{join("lib", "a.hcl"), join("lib", "b.hcl"), join("lib", "deep", "c.hcl")}, got)
	})

	t.Run("doublestar pattern", func(t *testing.T) {
		got, err := ExpandEntries([]string{join("**", "c.hcl")}, ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{join("lib", "deep", "c.hcl")}, got)
	})

	t.Run("entry order kept and duplicates dropped", func(t *testing.T) {
		got, err := ExpandEntries([]string{join("app.hcl"), join("lib", "*.hcl"), join("app.hcl")}, ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{join("app.hcl"), join("lib", "a.hcl"), join("lib", "b.hcl")}, got)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := ExpandEntries([]string{join("nothing", "*.hcl")}, ".hcl")
		assert.ErrorContains(t, err, "matched no files")

		_, err = ExpandEntries([]string{join("lib", "deep")}, ".yaml")
		assert.ErrorContains(t, err, "no .yaml files found")

		_, err = ExpandEntries([]string{join("[")}, ".hcl")
		assert.ErrorContains(t, err, "invalid entry pattern")
	})
}
