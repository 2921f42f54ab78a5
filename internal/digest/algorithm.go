package digest

import (
	"crypto/md5"  // #nosec G501 -- integrity checks only
	"crypto/sha1" // #nosec G505 -- integrity checks only
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"
)

// Algorithm identifies one of the supported digest functions. The numeric
// value is the canonical output order.
type Algorithm int

const (
	MD5 Algorithm = iota
	SHA1
	SHA256
	SHA512
)

// All lists every algorithm in canonical order.
var All = []Algorithm{MD5, SHA1, SHA256, SHA512}

var names = map[Algorithm]string{
	MD5:    "MD5",
	SHA1:   "SHA1",
	SHA256: "SHA256",
	SHA512: "SHA512",
}

func (a Algorithm) String() string {
	if name, ok := names[a]; ok {
		return name
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// New returns a fresh incremental hash state for the algorithm.
func (a Algorithm) New() hash.Hash {
	switch a {
	case MD5:
		return md5.New() // #nosec G401
	case SHA1:
		return sha1.New() // #nosec G401
	case SHA256:
		return sha256.New()
	case SHA512:
		return sha512.New()
	}
	panic(fmt.Sprintf("digest: unknown algorithm %d", int(a)))
}

// HexLen is the length of the algorithm's digest rendered as hex.
func (a Algorithm) HexLen() int {
	return a.New().Size() * 2
}

type ErrUnknownAlgorithm struct {
	name string
}

func (e *ErrUnknownAlgorithm) Error() string {
	return fmt.Sprintf("unknown algorithm: %q", e.name)
}

// Parse accepts the algorithm name in any case, with or without a dash
// ("sha-256").
func Parse(name string) (Algorithm, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "")
	for alg, n := range names {
		if n == key {
			return alg, nil
		}
	}
	return 0, &ErrUnknownAlgorithm{name: name}
}

// Set is a selection of algorithms. The zero value is empty.
type Set struct {
	bits uint8
}

// NewSet builds a set from the given algorithms; duplicates collapse.
func NewSet(algs ...Algorithm) Set {
	var s Set
	for _, alg := range algs {
		s = s.With(alg)
	}
	return s
}

// ParseSet parses names such as "md5,sha256". Each entry may itself be a
// comma separated list.
func ParseSet(entries ...string) (Set, error) {
	var s Set
	for _, entry := range entries {
		for _, name := range strings.Split(entry, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			alg, err := Parse(name)
			if err != nil {
				return Set{}, err
			}
			s = s.With(alg)
		}
	}
	return s, nil
}

func (s Set) With(alg Algorithm) Set {
	s.bits |= 1 << uint(alg)
	return s
}

func (s Set) Has(alg Algorithm) bool {
	return s.bits&(1<<uint(alg)) != 0
}

func (s Set) Empty() bool {
	return s.bits == 0
}

func (s Set) Len() int {
	return len(s.List())
}

// List returns the members in canonical order.
func (s Set) List() []Algorithm {
	var out []Algorithm
	for _, alg := range All {
		if s.Has(alg) {
			out = append(out, alg)
		}
	}
	return out
}

func (s Set) String() string {
	var parts []string
	for _, alg := range s.List() {
		parts = append(parts, alg.String())
	}
	return strings.Join(parts, ",")
}
