package watch

import (
	"io/fs"
	"path/filepath"
	"sort"
)

// FindSceneFiles recursively finds the files under dir matching patterns,
// DefaultPatterns when none are given. Hidden directories are skipped.
func FindSceneFiles(dir string, patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != dir && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}

		for _, pattern := range patterns {
			if matched, _ := filepath.Match(pattern, d.Name()); matched {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
