// Package retrieval fetches the surveillance and weather CSVs into the download
// directory under their canonical names.
package retrieval

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

// partialSuffix marks a download Chrome has not finished writing.
const partialSuffix = ".crdownload"

type candidate struct {
	name    string
	modTime time.Time
}

// candidates lists finished files in dir whose name starts with stem, in directory
// order.
func candidates(dir, stem string) ([]candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, stem) || strings.HasSuffix(name, partialSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		out = append(out, candidate{name: name, modTime: info.ModTime()})
	}
	return out, nil
}

// Normalize renames the most recently modified download sharing canonical's stem
// (e.g. "467410-2024-10 (2).csv") to canonical and returns the canonical path.
// When the newest candidate already is canonical the directory is left untouched.
func Normalize(dir, canonical string) (string, error) {
	found, err := candidates(dir, domain.Stem(canonical))
	if err != nil {
		return "", fmt.Errorf("list downloads: %w", err)
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no download matching %s in %s: %w", canonical, dir, domain.ErrMissingArtifact)
	}

	slices.SortStableFunc(found, func(a, b candidate) int {
		return a.modTime.Compare(b.modTime)
	})
	newest := found[len(found)-1]

	dst := filepath.Join(dir, canonical)
	if newest.name == canonical {
		return dst, nil
	}

	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("remove stale %s: %w", canonical, err)
	}
	if err := os.Rename(filepath.Join(dir, newest.name), dst); err != nil {
		return "", fmt.Errorf("rename %s: %w", newest.name, err)
	}
	return dst, nil
}
