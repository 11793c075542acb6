package pathmap

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"bleeparr/internal/config"
	"bleeparr/internal/logging"
)

const (
	defaultMaxDepth = 8
	defaultMaxFiles = 50000
)

// Resolver locates reported media files on the local filesystem.
type Resolver struct {
	source   MappingSource
	roots    []string
	maxDepth int
	maxFiles int
	logger   *slog.Logger
}

// NewResolver builds a resolver using the fallback roots and walk bounds in
// cfg. A nil source behaves as an empty mapping list.
func NewResolver(cfg *config.Config, source MappingSource, logger *slog.Logger) *Resolver {
	r := &Resolver{
		source:   source,
		maxDepth: defaultMaxDepth,
		maxFiles: defaultMaxFiles,
		logger:   logging.NewComponentLogger(logger, "pathmap"),
	}
	if cfg != nil {
		r.roots = append(r.roots, cfg.Resolver.FallbackRoots...)
		if cfg.Resolver.MaxDepth > 0 {
			r.maxDepth = cfg.Resolver.MaxDepth
		}
		if cfg.Resolver.MaxFiles > 0 {
			r.maxFiles = cfg.Resolver.MaxFiles
		}
	}
	return r
}

func (r *Resolver) mappings(ctx context.Context) []Mapping {
	if r.source == nil {
		return nil
	}
	return r.source.PathMappings(ctx)
}

// Map applies the current mappings without touching the filesystem.
func (r *Resolver) Map(ctx context.Context, reported string) (string, bool) {
	return Apply(r.mappings(ctx), strings.TrimSpace(reported))
}

// Resolve returns a local path for reported and whether a file was found. It
// never fails; a missing file yields false.
func (r *Resolver) Resolve(ctx context.Context, reported string) (string, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	reported = strings.TrimSpace(reported)
	if reported == "" {
		return "", false
	}

	mapped, wasMapped := r.Map(ctx, reported)
	if isFile(mapped) {
		r.logger.Debug("resolved via mapping", logging.String("reported", reported), logging.String("path", mapped), logging.Bool("mapped", wasMapped))
		return mapped, true
	}
	if wasMapped {
		r.logger.Debug("mapped file missing", logging.String("reported", reported), logging.String("mapped", mapped))
	}

	base := filepath.Base(reported)
	if base == "." || base == string(filepath.Separator) {
		return "", false
	}

	for _, root := range r.roots {
		candidate := filepath.Join(root, base)
		if isFile(candidate) {
			r.logger.Info("resolved via fallback root", logging.String("reported", reported), logging.String("path", candidate))
			return candidate, true
		}
	}

	st := &searchState{
		base:      base,
		target:    NormalizeName(base),
		remaining: r.maxFiles,
		walked:    make(map[string]struct{}),
	}
	if found, ok := r.search(ctx, append(r.seasonRoots(reported), r.roots...), st); ok {
		r.logger.Info("resolved via search", logging.String("reported", reported), logging.String("path", found))
		return found, true
	}
	if st.loose != "" {
		r.logger.Info("resolved via normalized name", logging.String("reported", reported), logging.String("path", st.loose))
		return st.loose, true
	}

	logging.WarnWithContext(r.logger, "file not found after fallbacks", "path_unresolved",
		logging.String("reported", reported),
		logging.Bool("budget_exhausted", st.remaining <= 0),
		logging.String(logging.FieldErrorHint, "verify path mappings and fallback roots"),
		logging.String(logging.FieldImpact, "item cannot be processed"),
	)
	return "", false
}

// seasonRoots derives narrow search roots from a "<series>/Season N" layout.
func (r *Resolver) seasonRoots(reported string) []string {
	parts := strings.Split(filepath.ToSlash(reported), "/")
	var roots []string
	for i, part := range parts {
		if i == 0 || !strings.Contains(strings.ToLower(part), "season") {
			continue
		}
		series := parts[i-1]
		if series == "" {
			continue
		}
		for _, root := range r.roots {
			roots = append(roots, filepath.Join(root, series, part), filepath.Join(root, series))
		}
	}
	return roots
}

// searchState is shared by every walk of one Resolve call. Each entry is
// visited at most once, and both the exact and the normalized name are checked
// on that visit. An exact match anywhere wins over a normalized one.
type searchState struct {
	base      string
	target    string
	remaining int
	walked    map[string]struct{}
	loose     string
}

func (st *searchState) covered(path string) bool {
	for p := path; ; {
		if _, ok := st.walked[p]; ok {
			return true
		}
		parent := filepath.Dir(p)
		if parent == p {
			return false
		}
		p = parent
	}
}

func (r *Resolver) search(ctx context.Context, roots []string, st *searchState) (string, bool) {
	for _, root := range roots {
		root = filepath.Clean(root)
		if st.remaining <= 0 || ctx.Err() != nil {
			return "", false
		}
		if st.covered(root) || !isDir(root) {
			continue
		}
		found, ok := r.walk(ctx, root, st)
		st.walked[root] = struct{}{}
		if ok {
			return found, true
		}
	}
	return "", false
}

func (r *Resolver) walk(ctx context.Context, root string, st *searchState) (string, bool) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if ctx.Err() != nil {
			return fs.SkipAll
		}
		if d.IsDir() {
			if _, done := st.walked[path]; done {
				return fs.SkipDir
			}
		}
		st.remaining--
		if st.remaining < 0 {
			return fs.SkipAll
		}
		if d.IsDir() {
			if depth(root, path) >= r.maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		name := d.Name()
		if name == st.base {
			found = path
			return fs.SkipAll
		}
		if st.loose == "" && NormalizeName(name) == st.target {
			st.loose = path
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		r.logger.Debug("walk failed", logging.String("root", root), logging.Error(err))
	}
	return found, found != ""
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

var nameReplacer = strings.NewReplacer("'", "", ":", "", ",", "", "&", "and")

// NormalizeName folds a basename for loose comparison: unicode is composed to
// NFC, apostrophes, colons and commas are removed, and "&" becomes "and".
func NormalizeName(name string) string {
	return nameReplacer.Replace(norm.NFC.String(name))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
