package inspect

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultModelsDir is searched when no paths are given.
const DefaultModelsDir = "app/models"

// Discover expands paths into the Ruby files to inspect. Directories are
// walked recursively for *.rb files; files are taken as given. A file is
// skipped when its slash-separated path or base name matches one of the
// exclude globs. The result is sorted and free of duplicates.
func Discover(paths, exclude []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{DefaultModelsDir}
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			if !excluded(p, exclude) {
				files = append(files, filepath.Clean(p))
			}
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && (strings.HasPrefix(d.Name(), ".") || excluded(path, exclude)) {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == ".rb" && !excluded(path, exclude) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

func excluded(path string, patterns []string) bool {
	slash := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, slash); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
		if strings.HasSuffix(pat, "/") && strings.Contains(slash+"/", "/"+pat) {
			return true
		}
	}
	return false
}
