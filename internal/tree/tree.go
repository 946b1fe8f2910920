// internal/tree/tree.go
package tree

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"diffwrite/internal/errors"
	"diffwrite/internal/writer"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures a Synchronizer
type Options struct {
	// Ignore holds doublestar patterns matched against slash-separated paths
	// relative to the source root. A matching directory is skipped whole.
	Ignore []string
	Logger *zap.Logger
}

// Synchronizer overlays a source directory onto a destination directory,
// writing each file through a writer.Writer. Destination entries without a
// source counterpart are never removed.
type Synchronizer struct {
	writer *writer.Writer
	ignore []string
	logger *zap.Logger
}

// New creates a Synchronizer. It fails if any ignore pattern is malformed.
func New(w *writer.Writer, opts Options) (*Synchronizer, error) {
	if w == nil {
		w = writer.New(writer.Options{Logger: opts.Logger})
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Validation("parse ignore pattern", "", fmt.Sprintf("invalid pattern %q", pattern))
		}
	}

	return &Synchronizer{
		writer: w,
		ignore: opts.Ignore,
		logger: opts.Logger,
	}, nil
}

// Sync walks src depth-first and makes every regular file under it present
// with identical content under dst. It stops at the first failure; the
// returned Summary is never nil and records every entry handled before it.
// When dst lies inside src, that subtree is skipped rather than copied into
// itself.
func (s *Synchronizer) Sync(src, dst string) (*Summary, error) {
	summary := &Summary{
		RunID:       uuid.New().String(),
		Source:      src,
		Destination: dst,
		DryRun:      s.writer.DryRun(),
	}
	r := &run{
		summary: summary,
		logger:  s.logger.With(zap.String("run_id", summary.RunID)),
	}

	info, err := os.Stat(src)
	if err != nil {
		return summary, errors.IO("stat", src, err)
	}
	if !info.IsDir() {
		return summary, errors.Validation("sync", src, "source is not a directory")
	}

	r.exclude, err = nestedDest(src, dst)
	if err != nil {
		return summary, err
	}

	r.logger.Debug("starting tree sync", zap.String("src", src), zap.String("dst", dst))
	if err := s.syncDir(src, dst, "", r); err != nil {
		r.logger.Debug("tree sync failed", zap.Error(err), zap.Int("entries", len(summary.Entries)))
		return summary, err
	}

	r.logger.Debug("finished tree sync",
		zap.Int("written", summary.Written),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("skipped", summary.Skipped),
		zap.Int("dirs_created", summary.DirsCreated))
	return summary, nil
}

// run is the state of one Sync call.
type run struct {
	summary *Summary
	logger  *zap.Logger
	// exclude is the slash-separated path of dst relative to src when dst
	// is nested inside src, or empty.
	exclude string
}

// nestedDest returns the path of dst relative to src when dst lies strictly
// below src, after resolving both to absolute, symlink-free paths.
func nestedDest(src, dst string) (string, error) {
	absSrc, err := resolve(src)
	if err != nil {
		return "", err
	}
	absDst, err := resolve(dst)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(absSrc, absDst)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// resolve makes p absolute and evaluates symlinks in its longest existing
// prefix; the missing remainder is appended unchanged.
func resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.IO("resolve", p, err)
	}

	var missing []string
	for cur := abs; ; {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			// The walk reports the underlying problem.
			return abs, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		missing = append(missing, filepath.Base(cur))
		cur = parent
	}
}

func (s *Synchronizer) syncDir(src, dst, rel string, r *run) error {
	summary, logger := r.summary, r.logger

	created, err := s.ensureDir(dst)
	if err != nil {
		return err
	}
	if created {
		summary.DirsCreated++
		logger.Debug("created directory", zap.String("path", dst))
	}

	// os.ReadDir returns entries sorted by name.
	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.IO("read dir", src, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		from := filepath.Join(src, name)
		to := filepath.Join(dst, name)
		relPath := path.Join(rel, name)

		if relPath == r.exclude {
			logger.Debug("skipping destination inside source", zap.String("path", relPath))
			summary.record(Entry{Path: relPath, Outcome: writer.Skipped, Reason: "destination"})
			continue
		}
		if s.Ignored(relPath) {
			logger.Debug("ignoring entry", zap.String("path", relPath))
			summary.record(Entry{Path: relPath, Outcome: writer.Skipped, Reason: "ignored"})
			continue
		}

		k, err := classify(from, entry)
		if err != nil {
			return err
		}

		switch k {
		case kindDir:
			if err := s.syncDir(from, to, relPath, r); err != nil {
				return err
			}
		case kindFile:
			size, err := fileSize(from, entry)
			if err != nil {
				return err
			}
			outcome, err := s.writer.WriteFile(from, to)
			if err != nil {
				return err
			}
			summary.record(Entry{Path: relPath, Outcome: outcome, Size: size})
		default:
			reason := k.String()
			logger.Warn("skipping entry", zap.String("path", from), zap.String("reason", reason))
			summary.record(Entry{Path: relPath, Outcome: writer.Skipped, Reason: reason})
		}
	}

	return nil
}

// Ignored reports whether a slash-separated path relative to the source root
// matches one of the ignore patterns.
func (s *Synchronizer) Ignored(relPath string) bool {
	for _, pattern := range s.ignore {
		// Patterns were validated in New.
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

// ensureDir creates dir and its missing ancestors, reporting whether it had
// to create anything.
func (s *Synchronizer) ensureDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return false, errors.Validation("sync", dir, "destination exists and is not a directory")
		}
		return false, nil
	case !errors.Is(err, fs.ErrNotExist):
		return false, errors.IO("stat", dir, err)
	}

	if s.writer.DryRun() {
		return true, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, errors.IO("mkdir", dir, err)
	}
	return true, nil
}

type kind int

const (
	kindFile kind = iota
	kindDir
	kindSymlinkDir
	kindDangling
	kindSpecial
)

func (k kind) String() string {
	switch k {
	case kindFile:
		return "file"
	case kindDir:
		return "directory"
	case kindSymlinkDir:
		return "symlink to directory"
	case kindDangling:
		return "dangling symlink"
	default:
		return "special file"
	}
}

// classify applies the entry policy: symlinks are followed once, links to
// regular files copy as files, everything else that is not a plain file or
// directory is skipped.
func classify(p string, entry fs.DirEntry) (kind, error) {
	mode := entry.Type()
	switch {
	case mode.IsDir():
		return kindDir, nil
	case mode.IsRegular():
		return kindFile, nil
	case mode&fs.ModeSymlink == 0:
		return kindSpecial, nil
	}

	target, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return kindDangling, nil
	}
	if err != nil {
		return kindSpecial, errors.IO("stat", p, err)
	}
	switch {
	case target.Mode().IsRegular():
		return kindFile, nil
	case target.IsDir():
		return kindSymlinkDir, nil
	default:
		return kindSpecial, nil
	}
}

func fileSize(p string, entry fs.DirEntry) (int64, error) {
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(p)
		if err != nil {
			return 0, errors.IO("stat", p, err)
		}
		return info.Size(), nil
	}
	info, err := entry.Info()
	if err != nil {
		return 0, errors.IO("stat", p, err)
	}
	return info.Size(), nil
}
