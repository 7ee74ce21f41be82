package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverSources expands configured source entries into a sorted,
// deduplicated list of manifest files. An entry may be a file, a
// directory (searched recursively for manifests), or a glob pattern.
func DiscoverSources(entries []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, entry := range entries {
		info, err := os.Stat(entry)
		switch {
		case err == nil && info.IsDir():
			walkErr := filepath.WalkDir(entry, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isManifest(path) {
					add(path)
				}
				return nil
			})
			if walkErr != nil {
				return nil, fmt.Errorf("failed to scan source directory %s: %w", entry, walkErr)
			}
		case err == nil:
			add(entry)
		default:
			matches, globErr := filepath.Glob(entry)
			if globErr != nil {
				return nil, fmt.Errorf("invalid source pattern %s: %w", entry, globErr)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("source %s matched nothing", entry)
			}
			for _, match := range matches {
				if fi, statErr := os.Stat(match); statErr == nil && !fi.IsDir() {
					add(match)
				}
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

func isManifest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
