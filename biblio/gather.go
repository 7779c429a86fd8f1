package biblio

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var folderNumberRe = regexp.MustCompile(`\d+`)

// Gatherer loads every entry of the numbered corpus folders in
// [Start, End]. Entries are read once and cached.
type Gatherer struct {
	Root       string
	Start, End int

	logger   *zap.Logger
	entries  []*Entry
	gathered bool
}

func NewGatherer(root string, start, end int, logger *zap.Logger) *Gatherer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gatherer{Root: root, Start: start, End: end, logger: logger}
}

type numberedDir struct {
	path string
	n    int
}

// Gather returns all readable entries. A file that fails to load is logged
// and skipped; only an unreadable root is an error.
func (g *Gatherer) Gather() ([]*Entry, error) {
	if g.gathered {
		return g.entries, nil
	}

	dirs, err := os.ReadDir(g.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read biblio directory %s: %w", g.Root, err)
	}

	var folders []numberedDir
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		m := folderNumberRe.FindString(d.Name())
		if m == "" {
			continue
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if n < g.Start || n > g.End {
			g.logger.Debug("folder outside range",
				zap.String("folder", d.Name()), zap.Int("start", g.Start), zap.Int("end", g.End))
			continue
		}
		folders = append(folders, numberedDir{path: filepath.Join(g.Root, d.Name()), n: n})
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].n < folders[j].n })

	byID := make(map[string]*Entry)
	var entries []*Entry
	for _, folder := range folders {
		g.logger.Info("gathering entries", zap.String("folder", folder.path))
		files, err := os.ReadDir(folder.path)
		if err != nil {
			g.logger.Error("failed to read folder", zap.String("folder", folder.path), zap.Error(err))
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), ".xml") {
				continue
			}
			path := filepath.Join(folder.path, f.Name())
			entry, err := ReadEntry(path)
			if err != nil {
				g.logger.Error("skipping entry file", zap.String("path", path), zap.Error(err))
				continue
			}
			if prev, ok := byID[entry.ID]; ok && entry.ID != "" {
				if prev.FullMatch(entry) {
					g.logger.Debug("duplicate entry", zap.String("id", entry.ID), zap.String("path", path))
				} else {
					g.logger.Warn("conflicting entries share an id",
						zap.String("id", entry.ID), zap.String("first", prev.Path), zap.String("second", path))
				}
			} else {
				byID[entry.ID] = entry
			}
			entries = append(entries, entry)
		}
	}

	g.logger.Info("gathered entries", zap.Int("count", len(entries)))
	g.entries = entries
	g.gathered = true
	return entries, nil
}

// MaxID is the highest numeric entry ID seen, or 0.
func MaxID(entries []*Entry) int {
	max := 0
	for _, e := range entries {
		if n, err := strconv.Atoi(e.ID); err == nil && n > max {
			max = n
		}
	}
	return max
}

// Index maps entry IDs to the first entry carrying them.
func Index(entries []*Entry) map[string]*Entry {
	idx := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		if _, ok := idx[e.ID]; !ok && e.ID != "" {
			idx[e.ID] = e
		}
	}
	return idx
}

// AttachReviews hangs each structured review on the entries it points at and
// returns the number attached. Targets missing from the corpus are logged.
func AttachReviews(entries []*Entry, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := Index(entries)
	attached := 0
	for _, e := range entries {
		if e.ReviewRecord == nil {
			continue
		}
		for _, target := range e.ReviewRecord.ReviewTargets {
			t, ok := idx[target]
			if !ok {
				logger.Warn("review points at an unknown entry",
					zap.String("review", e.Path), zap.String("target", target))
				continue
			}
			t.Reviews = append(t.Reviews, e.ReviewRecord)
			attached++
		}
	}
	return attached
}
