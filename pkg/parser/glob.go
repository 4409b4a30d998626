package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ExpandGlobs expands file paths, glob patterns and directories into a
// sorted, deduplicated list of files. A directory, named directly or
// matched by a glob, expands to the *.log files directly inside it, which
// matches the kubelet layout /var/log/pods/<pod>/<container>/<restart>.log.
// Patterns that match nothing are returned as-is so the caller reports
// file-not-found.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
	}

	addDir := func(dir string) error {
		logs, err := filepath.Glob(filepath.Join(dir, "*.log"))
		if err != nil {
			return fmt.Errorf("listing directory %q: %w", dir, err)
		}
		for _, l := range logs {
			add(l)
		}
		return nil
	}

	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && info.IsDir() {
			if err := addDir(pattern); err != nil {
				return nil, err
			}
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			add(pattern)
			continue
		}

		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && info.IsDir() {
				if err := addDir(match); err != nil {
					return nil, err
				}
				continue
			}
			add(match)
		}
	}

	sort.Strings(result)

	return result, nil
}
