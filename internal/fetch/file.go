package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File reads locators from the local filesystem. Relative locators are
// joined to Dir; "file://" prefixes are stripped.
type File struct {
	Dir string
}

// Fetch implements Fetcher.
func (f *File) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := strings.TrimPrefix(locator, "file://")
	if !filepath.IsAbs(p) && f.Dir != "" {
		p = filepath.Join(f.Dir, filepath.FromSlash(p))
	}
	body, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return body, nil
}
