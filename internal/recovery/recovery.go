// Package recovery purges workspace cache state presumed corrupt after an
// unfinished load.
//
// Every target is attempted independently. A target that cannot be removed is
// recorded in the Report and skipped; the next target is still attempted and
// nothing is retried. Absent targets are silently ignored, so recovering a
// clean workspace is a no-op.
package recovery

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/peterM/HangFixer/internal/errors"
	"github.com/peterM/HangFixer/internal/logging"
)

// Targets names what Recover removes, relative to the workspace root.
type Targets struct {
	// CacheDirs are removed recursively.
	CacheDirs []string
	// SessionGlobs select regular files directly inside the root.
	SessionGlobs []string
}

// TargetKind distinguishes cache directories from session files.
type TargetKind string

const (
	KindCacheDir    TargetKind = "cache_dir"
	KindSessionFile TargetKind = "session_file"
)

// Target is one concrete path Recover would delete.
type Target struct {
	Kind TargetKind
	Path string
}

// Failure pairs a target with the reason it could not be removed. Target.Path
// is the root itself when the root could not be listed.
type Failure struct {
	Target Target
	Err    error
}

// Report summarizes one Recover call.
type Report struct {
	Root     string
	Deleted  []Target
	Failed   []Failure
	Duration time.Duration
}

// Err joins all failures, or returns nil when every target succeeded.
func (r Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// Option configures a Policy.
type Option func(*Policy)

// WithLogger sets the logger used for per-target outcomes.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Policy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Policy deletes the configured targets under a workspace root.
type Policy struct {
	fs      afero.Fs
	targets Targets
	logger  *logging.Logger
}

// NewPolicy creates a Policy for the given targets on fs.
func NewPolicy(fs afero.Fs, targets Targets, opts ...Option) *Policy {
	p := &Policy{
		fs:      fs,
		targets: targets,
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Root returns the workspace root for a descriptor: its directory.
func Root(workspaceID string) string {
	return filepath.Dir(filepath.Clean(workspaceID))
}

// Targets returns the configured target names.
func (p *Policy) Targets() Targets {
	return p.targets
}

// Plan lists the targets currently present under root without touching them.
// Listing failures are returned alongside whatever could be resolved.
func (p *Policy) Plan(root string) ([]Target, []Failure) {
	var found []Target
	var failures []Failure

	cleanRoot := filepath.Clean(root)
	for _, dir := range p.targets.CacheDirs {
		path := filepath.Join(root, dir)
		// A name that resolves to the root would purge the whole workspace.
		if path == cleanRoot {
			p.logger.Warn("cache dir resolves to workspace root, skipped", "cache_dir", dir, "root", root)
			continue
		}
		fi, err := p.fs.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				failures = append(failures, failure(KindCacheDir, path, err))
			}
			continue
		}
		if fi.IsDir() {
			found = append(found, Target{Kind: KindCacheDir, Path: path})
		}
	}

	if len(p.targets.SessionGlobs) == 0 {
		return found, failures
	}

	// Entries are matched by base name so that glob metacharacters in the
	// root itself are never interpreted.
	entries, err := afero.ReadDir(p.fs, root)
	if err != nil {
		if !os.IsNotExist(err) {
			failures = append(failures, failure(KindSessionFile, root, err))
		}
		return found, failures
	}

	seen := make(map[string]bool)
	for _, pattern := range p.targets.SessionGlobs {
		for _, entry := range entries {
			if !entry.Mode().IsRegular() || seen[entry.Name()] {
				continue
			}
			ok, err := filepath.Match(pattern, entry.Name())
			if err != nil {
				failures = append(failures, failure(KindSessionFile, filepath.Join(root, pattern), err))
				break
			}
			if ok {
				seen[entry.Name()] = true
				found = append(found, Target{Kind: KindSessionFile, Path: filepath.Join(root, entry.Name())})
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Kind != found[j].Kind {
			return found[i].Kind == KindCacheDir
		}
		return found[i].Path < found[j].Path
	})
	return found, failures
}

// Recover removes every present target under root and reports the outcome.
// It runs synchronously, never retries, and never stops early.
func (p *Policy) Recover(root string) Report {
	start := time.Now()
	report := Report{Root: root}

	targets, failures := p.Plan(root)
	report.Failed = append(report.Failed, failures...)

	for _, target := range targets {
		var err error
		switch target.Kind {
		case KindCacheDir:
			err = p.fs.RemoveAll(target.Path)
		default:
			err = p.fs.Remove(target.Path)
		}

		if err != nil && !os.IsNotExist(err) {
			f := failure(target.Kind, target.Path, err)
			report.Failed = append(report.Failed, f)
			p.logger.Warn("recovery target not removed",
				"path", target.Path,
				"target_kind", string(target.Kind),
				"kind", string(errors.Classify(err)),
				"error", err.Error(),
			)
			continue
		}
		if err == nil {
			report.Deleted = append(report.Deleted, target)
			p.logger.Debug("recovery target removed", "path", target.Path, "target_kind", string(target.Kind))
		}
	}

	report.Duration = time.Since(start)
	return report
}

func failure(kind TargetKind, path string, err error) Failure {
	return Failure{
		Target: Target{Kind: kind, Path: path},
		Err:    errors.NewIOError(errors.OpRecover, path, err),
	}
}
