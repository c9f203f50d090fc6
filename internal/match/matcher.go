// Package match selects prior circuits whose outputs can drive a locked
// circuit's non-key inputs.
package match

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roach88/probesweep/internal/bench"
)

// DefaultAllowList holds the benchmark prefixes considered as prior
// circuits.
var DefaultAllowList = []string{
	"b01", "b03", "b04", "b06", "b07",
	"b08", "b09", "b10", "b11", "b12",
	"b13", "s38584.1",
}

const defaultCacheSize = 4096

// cacheSubdir is skipped during the walk so adapted variants never become
// candidates themselves.
const cacheSubdir = "modified"

// Matcher walks a corpus of candidate prior circuits.
type Matcher struct {
	corpusDir string
	allow     []string
	adapter   *bench.Adapter
	cache     *lru.Cache[string, *bench.Descriptor]
	logger    *zap.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithAllowList replaces DefaultAllowList.
func WithAllowList(prefixes []string) Option {
	return func(m *Matcher) {
		m.allow = prefixes
	}
}

// WithAdapter sets the adapter used to widen candidates.
func WithAdapter(a *bench.Adapter) Option {
	return func(m *Matcher) {
		m.adapter = a
	}
}

// WithLogger sets the matcher's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// NewMatcher creates a Matcher over corpusDir.
func NewMatcher(corpusDir string, opts ...Option) (*Matcher, error) {
	cache, err := lru.New[string, *bench.Descriptor](defaultCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "new matcher")
	}
	m := &Matcher{
		corpusDir: corpusDir,
		allow:     DefaultAllowList,
		adapter:   &bench.Adapter{},
		cache:     cache,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("match")
	return m, nil
}

// FindCompatible returns, in walk order, a path per allowed candidate whose
// outputs cover the locked circuit's non-key inputs. Candidates with too
// few outputs are replaced by a duplicated variant. A candidate that
// cannot be read or declares no outputs is logged and skipped. A missing
// or unreadable corpus yields no candidates.
func (m *Matcher) FindCompatible(ctx context.Context, lockedPath string) ([]string, error) {
	locked, err := bench.Read(lockedPath)
	if err != nil {
		return nil, errors.Wrap(err, "find compatible")
	}
	required := len(locked.Inputs)

	var compatible []string
	err = filepath.WalkDir(m.corpusDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			m.logger.Warn("skipping unreadable corpus entry", zap.String("path", path), zap.Error(err))
			switch {
			case path == m.corpusDir:
				return filepath.SkipAll
			case d != nil && d.IsDir():
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != m.corpusDir && d.Name() == cacheSubdir {
				return filepath.SkipDir
			}
			return nil
		}
		if !m.allowed(d.Name()) {
			return nil
		}

		candidate, err := m.adapt(path, required)
		if err != nil {
			m.logger.Warn("skipping candidate", zap.String("path", path), zap.Error(err))
			return nil
		}
		if candidate != "" {
			compatible = append(compatible, candidate)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "find compatible")
	}

	m.logger.Info("compatible priors",
		zap.String("locked", lockedPath),
		zap.Int("required_outputs", required),
		zap.Int("count", len(compatible)),
	)
	return compatible, nil
}

func (m *Matcher) allowed(name string) bool {
	if !strings.HasSuffix(name, ".bench") {
		return false
	}
	for _, prefix := range m.allow {
		if strings.Contains(name, prefix) {
			return true
		}
	}
	return false
}

// adapt returns the path to use for candidate, or "" when it has no
// outputs to duplicate.
func (m *Matcher) adapt(candidate string, required int) (string, error) {
	d, err := m.describe(candidate)
	if err != nil {
		return "", err
	}
	available := len(d.Outputs)
	if available >= required {
		return candidate, nil
	}
	if available == 0 {
		m.logger.Warn("candidate declares no outputs", zap.String("path", candidate))
		return "", nil
	}

	factor := bench.DuplicationFactor(required, available)
	adapted, err := m.adapter.DuplicateOutputs(candidate, factor)
	if err != nil {
		return "", err
	}
	m.logger.Debug("duplicated candidate outputs",
		zap.String("path", candidate),
		zap.Int("factor", factor),
		zap.String("variant", adapted),
	)
	return adapted, nil
}

// describe reads a descriptor, reusing a cached copy while the file's size
// and modification time are unchanged.
func (m *Matcher) describe(path string) (*bench.Descriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat candidate")
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
	if d, ok := m.cache.Get(key); ok {
		return d, nil
	}
	d, err := bench.Read(path)
	if err != nil {
		return nil, err
	}
	m.cache.Add(key, d)
	return d, nil
}

// SortByLineCount orders paths by ascending line count, breaking ties by
// path.
func SortByLineCount(paths []string) ([]string, error) {
	type counted struct {
		path  string
		lines int
	}
	items := make([]counted, 0, len(paths))
	for _, p := range paths {
		n, err := countLines(p)
		if err != nil {
			return nil, err
		}
		items = append(items, counted{path: p, lines: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].lines != items[j].lines {
			return items[i].lines < items[j].lines
		}
		return items[i].path < items[j].path
	})

	sorted := make([]string, len(items))
	for i, it := range items {
		sorted[i] = it.path
	}
	return sorted, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "count lines")
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		n++
	}
	if err := scanner.Err(); err != nil {
		return 0, errors.Wrapf(err, "count lines %s", path)
	}
	return n, nil
}
