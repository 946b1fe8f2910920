// Package diffwrite writes bytes, files and directory trees only where the
// destination content actually differs, so that modification times change
// only on real changes.
//
// Each entry point takes the fingerprint algorithm used to compare contents.
// Pass nil for the default (xxhash). Use SHA256 when the compared content may
// be controlled by an adversary.
package diffwrite

import (
	"diffwrite/internal/fingerprint"
	"diffwrite/internal/tree"
	"diffwrite/internal/writer"
)

type (
	Algorithm     = fingerprint.Algorithm
	Fingerprint   = fingerprint.Fingerprint
	Outcome       = writer.Outcome
	WriterOptions = writer.Options
	Writer        = writer.Writer
	SyncOptions   = tree.Options
	Synchronizer  = tree.Synchronizer
	Summary       = tree.Summary
	Entry         = tree.Entry
)

const (
	Unchanged = writer.Unchanged
	Written   = writer.Written
	Skipped   = writer.Skipped
)

var (
	XXHash = fingerprint.XXHash
	FNV64a = fingerprint.FNV64a
	SHA256 = fingerprint.SHA256
)

// WriteBytes writes data to dst unless dst already holds exactly data.
func WriteBytes(alg Algorithm, dst string, data []byte) (Outcome, error) {
	return NewWriter(WriterOptions{Algorithm: alg}).WriteBytes(dst, data)
}

// WriteFile copies src to dst unless dst already holds the same content.
func WriteFile(alg Algorithm, src, dst string) (Outcome, error) {
	return NewWriter(WriterOptions{Algorithm: alg}).WriteFile(src, dst)
}

// WriteDir overlays the tree at src onto dst, writing only files whose
// content differs. Files present only in dst are left alone. On error the
// Summary lists what was done before the failure.
func WriteDir(alg Algorithm, src, dst string) (*Summary, error) {
	s, err := NewSynchronizer(NewWriter(WriterOptions{Algorithm: alg}), SyncOptions{})
	if err != nil {
		return nil, err
	}
	return s.Sync(src, dst)
}

func NewWriter(opts WriterOptions) *Writer {
	return writer.New(opts)
}

func NewSynchronizer(w *Writer, opts SyncOptions) (*Synchronizer, error) {
	return tree.New(w, opts)
}

// FingerprintOf computes the digest of data under alg, or the default
// algorithm when alg is nil.
func FingerprintOf(alg Algorithm, data []byte) Fingerprint {
	if alg == nil {
		alg = fingerprint.Default
	}
	return fingerprint.Of(alg, data)
}
