package biblio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrCorpusNotFound = errors.New("corpus directory not found")

// FindCorpusRoot walks upward from start until a directory has a child whose
// name contains marker, and returns that child.
func FindCorpusRoot(start, marker string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}
	for {
		if child, ok := childContaining(dir, marker, false); ok {
			return child, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find %s starting from %s: %w", marker, start, ErrCorpusNotFound)
		}
		dir = parent
	}
}

// FindBiblioDirectory locates the corpus root and descends into its child
// whose name contains biblioName, case-insensitively.
func FindBiblioDirectory(start, marker, biblioName string) (string, error) {
	root, err := FindCorpusRoot(start, marker)
	if err != nil {
		return "", err
	}
	if dir, ok := childContaining(root, biblioName, true); ok {
		return dir, nil
	}
	return "", fmt.Errorf("no %s directory under %s: %w", biblioName, root, ErrCorpusNotFound)
}

func childContaining(dir, name string, foldCase bool) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	if foldCase {
		name = strings.ToLower(name)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n := e.Name()
		if foldCase {
			n = strings.ToLower(n)
		}
		if strings.Contains(n, name) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}
