package index

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultExcludeDirs are skipped even when not configured.
var DefaultExcludeDirs = []string{".git", "__pycache__", ".venv", "venv", ".tox", "node_modules"}

// Discover returns the slash-separated, root-relative paths of all *.py
// files under root, sorted. Directories named in excludeDirs or
// DefaultExcludeDirs are skipped, as is anything matched by root/.gitignore.
func Discover(root string, excludeDirs []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	excluded := make(map[string]bool, len(DefaultExcludeDirs)+len(excludeDirs))
	for _, d := range DefaultExcludeDirs {
		excluded[d] = true
	}
	for _, d := range excludeDirs {
		excluded[d] = true
	}

	gi, err := loadGitignore(root)
	if err != nil {
		return nil, err
	}

	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if excluded[d.Name()] || (gi != nil && (gi.MatchesPath(rel) || gi.MatchesPath(rel+"/"))) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".py" || !d.Type().IsRegular() {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk: %w", walkErr)
	}
	sort.Strings(files)
	return files, nil
}

// loadGitignore compiles root/.gitignore, or returns nil if there is none.
func loadGitignore(root string) (*ignore.GitIgnore, error) {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat .gitignore: %w", err)
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, fmt.Errorf("compile .gitignore: %w", err)
	}
	return gi, nil
}

func sortFailures(f []Failure) {
	sort.Slice(f, func(i, j int) bool { return f[i].File < f[j].File })
}
