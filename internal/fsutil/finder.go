// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// ExpandEntries turns bundle entries into file paths. An existing file is
// kept as is, a directory expands to every file below it ending in
// extension, and anything else is matched as a doublestar pattern such as
// "src/**/*.hcl". Each entry must yield at least one file. The result keeps
// entry order and drops duplicates.
func ExpandEntries(entries []string, extension string) ([]string, error) {
	var out []string
	add := func(paths ...string) {
		for _, p := range paths {
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
	}

	for _, entry := range entries {
		info, err := os.Stat(entry)
		switch {
		case err == nil && !info.IsDir():
			add(entry)
			continue
		case err == nil:
			files, err := FindFilesByExtension(entry, extension)
			if err != nil {
				return nil, fmt.Errorf("failed to scan %s: %w", entry, err)
			}
			if len(files) == 0 {
				return nil, fmt.Errorf("no %s files found in %s", extension, entry)
			}
			slices.Sort(files)
			add(files...)
			continue
		}

		if !doublestar.ValidatePathPattern(entry) {
			return nil, fmt.Errorf("invalid entry pattern %q", entry)
		}
		matches, err := doublestar.FilepathGlob(entry, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", entry, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("entry %s matched no files", entry)
		}
		slices.Sort(matches)
		add(matches...)
	}
	return out, nil
}
