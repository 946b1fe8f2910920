// internal/writer/writer.go
package writer

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"diffwrite/internal/errors"
	"diffwrite/internal/fingerprint"

	"go.uber.org/zap"
)

// Outcome reports what a conditional write did to its destination.
type Outcome int

const (
	Unchanged Outcome = iota
	Written
	// Skipped is never returned by Writer; the tree walk uses it for entries
	// it does not copy (ignored paths, special files).
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Written:
		return "written"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

const DefaultPerm os.FileMode = 0o644

// Options configures Writer behavior
type Options struct {
	// Algorithm fingerprints existing and new content. Defaults to fingerprint.Default.
	Algorithm fingerprint.Algorithm
	// Perm applies to files created by WriteBytes. Existing files keep their mode.
	Perm os.FileMode
	// Atomic stages new content in a temp file beside the destination and
	// renames it into place.
	Atomic bool
	// DryRun computes outcomes without touching the destination.
	DryRun bool
	Logger *zap.Logger
}

// Writer performs diff-aware writes: a destination is only opened for
// writing when its content differs from the new content.
type Writer struct {
	alg    fingerprint.Algorithm
	perm   os.FileMode
	atomic bool
	dryRun bool
	logger *zap.Logger
}

// New creates a Writer, filling unset options with defaults
func New(opts Options) *Writer {
	if opts.Algorithm == nil {
		opts.Algorithm = fingerprint.Default
	}
	if opts.Perm == 0 {
		opts.Perm = DefaultPerm
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Writer{
		alg:    opts.Algorithm,
		perm:   opts.Perm,
		atomic: opts.Atomic,
		dryRun: opts.DryRun,
		logger: opts.Logger,
	}
}

func (w *Writer) DryRun() bool {
	return w.dryRun
}

// WriteBytes makes dst hold exactly data, writing only if its current content
// differs or it does not exist.
func (w *Writer) WriteBytes(dst string, data []byte) (Outcome, error) {
	info, err := w.statDest(dst)
	if err != nil {
		return Unchanged, err
	}

	// A size mismatch already proves the content differs.
	if info != nil && info.Size() == int64(len(data)) {
		same, err := w.destMatches(dst, fingerprint.Of(w.alg, data))
		if err != nil {
			return Unchanged, err
		}
		if same {
			w.logger.Debug("destination unchanged", zap.String("path", dst))
			return Unchanged, nil
		}
	}

	if w.dryRun {
		w.logger.Debug("would write destination", zap.String("path", dst), zap.Int("size", len(data)))
		return Written, nil
	}

	perm := w.perm
	if info != nil {
		perm = info.Mode().Perm()
	}
	err = w.commit(dst, perm, func(out io.Writer) error {
		_, err := out.Write(data)
		return err
	})
	if err != nil {
		return Unchanged, err
	}

	w.logger.Debug("wrote destination", zap.String("path", dst), zap.Int("size", len(data)))
	return Written, nil
}

// WriteFile makes dst hold exactly the content of src. Content is streamed;
// neither file is loaded into memory whole.
func (w *Writer) WriteFile(src, dst string) (Outcome, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return Unchanged, errors.IO("stat", src, err)
	}
	if !srcInfo.Mode().IsRegular() {
		return Unchanged, errors.Validation("copy", src, "source is not a regular file")
	}

	info, err := w.statDest(dst)
	if err != nil {
		return Unchanged, err
	}

	if info != nil && info.Size() == srcInfo.Size() {
		want, err := fingerprint.FromFile(w.alg, src)
		if err != nil {
			return Unchanged, err
		}
		same, err := w.destMatches(dst, want)
		if err != nil {
			return Unchanged, err
		}
		if same {
			w.logger.Debug("destination unchanged", zap.String("src", src), zap.String("path", dst))
			return Unchanged, nil
		}
	}

	if w.dryRun {
		w.logger.Debug("would copy file", zap.String("src", src), zap.String("path", dst), zap.Int64("size", srcInfo.Size()))
		return Written, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return Unchanged, errors.IO("open", src, err)
	}
	defer in.Close()

	perm := srcInfo.Mode().Perm()
	if info != nil {
		perm = info.Mode().Perm()
	}
	err = w.commit(dst, perm, func(out io.Writer) error {
		_, err := io.Copy(out, in)
		return err
	})
	if err != nil {
		return Unchanged, err
	}

	w.logger.Debug("copied file", zap.String("src", src), zap.String("path", dst), zap.Int64("size", srcInfo.Size()))
	return Written, nil
}

// statDest returns nil info when dst does not exist.
func (w *Writer) statDest(dst string) (os.FileInfo, error) {
	info, err := os.Stat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.IO("stat", dst, err)
	}
	if info.IsDir() {
		return nil, errors.Validation("write", dst, "destination is a directory")
	}
	return info, nil
}

func (w *Writer) destMatches(dst string, want fingerprint.Fingerprint) (bool, error) {
	f, err := os.Open(dst)
	if errors.Is(err, fs.ErrNotExist) {
		// Removed since the stat; treat as absent.
		return false, nil
	}
	if err != nil {
		return false, errors.IO("open", dst, err)
	}
	defer f.Close()

	have, err := fingerprint.FromReader(w.alg, f)
	if err != nil {
		return false, errors.IO("read", dst, err)
	}
	return have == want, nil
}

func (w *Writer) commit(dst string, perm os.FileMode, fill func(io.Writer) error) error {
	if w.atomic {
		return commitAtomic(dst, perm, fill)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errors.IO("open", dst, err)
	}
	defer f.Close()

	if err := fill(f); err != nil {
		return errors.IO("write", dst, err)
	}
	if err := f.Close(); err != nil {
		return errors.IO("close", dst, err)
	}
	return nil
}

func commitAtomic(dst string, perm os.FileMode, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return errors.IO("create temp", dst, err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := fill(tmp); err != nil {
		return errors.IO("write", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return errors.IO("sync", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.IO("close", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return errors.IO("chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return errors.IO("rename", dst, err)
	}

	committed = true
	return nil
}
