package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/MeKo-Tech/canescan/internal/imageio"
)

// fileFilter selects files by glob patterns on their base name. Exclude
// wins over include; no include patterns admits everything.
type fileFilter struct {
	include []string
	exclude []string
}

func (f fileFilter) admits(path string) bool {
	base := filepath.Base(path)
	matches := func(pattern string) bool {
		ok, _ := filepath.Match(pattern, base)
		return ok
	}
	if slices.ContainsFunc(f.exclude, matches) {
		return false
	}
	return len(f.include) == 0 || slices.ContainsFunc(f.include, matches)
}

// discoverImageFiles expands args into image paths without duplicates.
// Directories contribute their supported images; files named explicitly
// are kept so that unreadable ones are reported per file.
func discoverImageFiles(args []string, recursive bool, include, exclude []string) ([]string, error) {
	filter := fileFilter{include: include, exclude: exclude}
	var files []string
	seen := make(map[string]bool)

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		candidates := []string{arg}
		if info.IsDir() {
			if candidates, err = walkImages(arg, recursive, filter); err != nil {
				return nil, err
			}
		} else if !filter.admits(arg) {
			continue
		}

		for _, p := range candidates {
			if !seen[p] {
				seen[p] = true
				files = append(files, p)
			}
		}
	}
	return files, nil
}

// walkImages lists the admitted supported images below dir in lexical order.
func walkImages(dir string, recursive bool, filter fileFilter) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			if path != dir && !recursive {
				return filepath.SkipDir
			}
		case imageio.IsSupportedImage(path) && filter.admits(path):
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
