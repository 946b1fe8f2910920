// Package fingerprint computes content digests used to decide whether a
// destination already holds the bytes about to be written. Digests are for
// change detection only; the default algorithm is not collision resistant
// against an adversary.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/fnv"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"diffwrite/internal/errors"
)

// Algorithm returns fresh hash state for a single fingerprint.
type Algorithm func() hash.Hash

var (
	XXHash Algorithm = func() hash.Hash { return xxhash.New() }
	FNV64a Algorithm = func() hash.Hash { return fnv.New64a() }
	SHA256 Algorithm = sha256.New
)

// Default is used whenever a caller leaves the algorithm unset.
var Default = XXHash

var algorithms = map[string]Algorithm{
	"xxhash": XXHash,
	"fnv64a": FNV64a,
	"sha256": SHA256,
}

// Lookup resolves an algorithm by its configuration name.
func Lookup(name string) (Algorithm, error) {
	if name == "" {
		return Default, nil
	}
	alg, ok := algorithms[strings.ToLower(name)]
	if !ok {
		return nil, errors.Validation("lookup algorithm", "",
			fmt.Sprintf("unknown algorithm %q (known: %s)", name, strings.Join(Names(), ", ")))
	}
	return alg, nil
}

// Names lists the registered algorithm names in sorted order.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fingerprint is an opaque digest. Values are only comparable when produced
// by the same Algorithm.
type Fingerprint string

func (f Fingerprint) String() string {
	return hex.EncodeToString([]byte(f))
}

// Of fingerprints an in-memory byte slice.
func Of(alg Algorithm, data []byte) Fingerprint {
	h := alg()
	h.Write(data)
	return Fingerprint(h.Sum(nil))
}

// FromReader streams r through the algorithm without buffering it whole.
func FromReader(alg Algorithm, r io.Reader) (Fingerprint, error) {
	h := alg()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return Fingerprint(h.Sum(nil)), nil
}

// FromFile fingerprints the file at path. A missing file surfaces as an error
// wrapping fs.ErrNotExist.
func FromFile(alg Algorithm, path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.IO("open", path, err)
	}
	defer f.Close()

	fp, err := FromReader(alg, f)
	if err != nil {
		return "", errors.IO("read", path, err)
	}
	return fp, nil
}
