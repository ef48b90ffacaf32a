package config

import (
	"os"
	"path/filepath"
	"strings"
)

// treeFileSuffixes are the names ScanTreeFiles treats as tree data.
var treeFileSuffixes = []string{".tree.json", ".tree.yaml", ".tree.yml"}

// ScanTreeFiles walks a directory tree up to maxDepth levels deep and
// returns the tree data files it finds (*.tree.json, *.tree.yaml).
// Hidden directories other than .arbor are skipped.
func ScanTreeFiles(root string, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	root = expandHome(root)
	var results []string

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			currentDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
			if currentDepth > maxDepth {
				return filepath.SkipDir
			}
			name := d.Name()
			if path != root && strings.HasPrefix(name, ".") && name != DirName {
				return filepath.SkipDir
			}
			return nil
		}

		if isTreeFile(d.Name()) {
			results = append(results, path)
		}
		return nil
	})

	return results
}

func isTreeFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range treeFileSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// DetectConfig looks for .arbor/config.yaml from the current directory
// upward.
func DetectConfig() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return findConfig(dir)
}

// findConfig walks up from dir looking for .arbor/config.yaml. It stops at
// the home directory.
func findConfig(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		candidate := filepath.Join(dir, DirName, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
