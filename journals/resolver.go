package journals

import (
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Unresolved is returned for any journal name that cannot be resolved.
const Unresolved = "-1"

var (
	thousandsRe = regexp.MustCompile(`(\d),(\d{3})\b`)
	seriesRe    = regexp.MustCompile(`\s*\b(N\.S\.|3e s\.|4e s\.)`)
)

// Resolver maps journal names to IDs. The table is loaded on first use and
// kept for the lifetime of the resolver.
type Resolver struct {
	loader Loader
	logger *zap.Logger

	mu      sync.Mutex
	table   *Table
	loadErr error
	loaded  bool

	unresolved atomic.Int64
}

func NewResolver(loader Loader, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{loader: loader, logger: logger}
}

func (r *Resolver) load() (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		r.table, r.loadErr = r.loader.Load()
		r.loaded = true
		if r.loadErr != nil {
			r.logger.Error("failed to load journal table", zap.Error(r.loadErr))
		} else {
			r.logger.Info("loaded journal table",
				zap.Int("short", len(r.table.Short)), zap.Int("long", len(r.table.Long)))
		}
	}
	return r.table, r.loadErr
}

// Preload forces the table load so a missing resource fails the run early.
func (r *Resolver) Preload() error {
	_, err := r.load()
	return err
}

// Resolve returns the ID for name, or Unresolved. It never fails.
func (r *Resolver) Resolve(name string) string {
	if strings.TrimSpace(name) == "" || strings.Contains(name, "-") || strings.Contains(name, "p.") {
		return r.miss(name, "malformed journal name")
	}

	table, err := r.load()
	if err != nil || table == nil {
		return r.miss(name, "journal table unavailable")
	}

	for _, candidate := range candidates(name) {
		if id, ok := table.Short[candidate]; ok {
			return id
		}
		if id, ok := table.Long[candidate]; ok {
			return id
		}
	}
	return r.miss(name, "journal not in table")
}

func (r *Resolver) miss(name, reason string) string {
	r.unresolved.Add(1)
	r.logger.Debug(reason, zap.String("journal", name))
	return Unresolved
}

// Unresolved is the number of failed resolutions since the last Reset.
func (r *Resolver) Unresolved() int {
	return int(r.unresolved.Load())
}

// Reset drops the cached table and clears the counter.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.table, r.loadErr, r.loaded = nil, nil, false
	r.mu.Unlock()
	r.unresolved.Store(0)
}

// candidates lists the lookup keys for name: the normalized name, then the
// name without its series qualifier.
func candidates(name string) []string {
	n := strings.ReplaceAll(name, "&amp;", "&")
	n = thousandsRe.ReplaceAllString(n, "$1$2")
	n = strings.TrimSpace(n)

	out := []string{n}
	if seriesRe.MatchString(n) {
		if bare := strings.TrimSpace(seriesRe.ReplaceAllString(n, "")); bare != "" && bare != n {
			out = append(out, bare)
		}
	}
	return out
}
