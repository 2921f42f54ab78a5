package digest

import (
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

const (
	// DefaultChunkSize is the read buffer used per file. Large enough to
	// keep syscall overhead low, small enough for regular progress updates.
	DefaultChunkSize = 4 << 20

	// MinChunkSize is the smallest chunk size accepted; anything below is
	// pathological for throughput.
	MinChunkSize = 64 << 10
)

// ClampChunkSize returns size, or DefaultChunkSize when size is not set,
// raised to MinChunkSize if needed.
func ClampChunkSize(size int) int {
	if size <= 0 {
		return DefaultChunkSize
	}
	if size < MinChunkSize {
		return MinChunkSize
	}
	return size
}

type ErrInvalidState struct {
	op string
}

func (e *ErrInvalidState) Error() string {
	return fmt.Sprintf("digest accumulator: invalid state for %s", e.op)
}

type accState int

const (
	stateStreaming accState = iota
	stateSealed
	stateFinalized
)

// Accumulator advances one hash state per selected algorithm over a single
// shared stream of bytes.
type Accumulator struct {
	algs   []Algorithm
	states []hash.Hash
	state  accState
}

// NewAccumulator creates the hash states for every algorithm in the set.
func NewAccumulator(set Set) *Accumulator {
	algs := set.List()
	states := make([]hash.Hash, len(algs))
	for i, alg := range algs {
		states[i] = alg.New()
	}
	return &Accumulator{
		algs:   algs,
		states: states,
		state:  stateStreaming,
	}
}

// Algorithms returns the accumulator's algorithms in canonical order.
func (acc *Accumulator) Algorithms() []Algorithm {
	return acc.algs
}

// Feed passes the same chunk to every hash state. final marks the last
// chunk of the stream (it may be empty); nothing may be fed after it.
func (acc *Accumulator) Feed(chunk []byte, final bool) error {
	if acc.state != stateStreaming {
		return &ErrInvalidState{op: "feed"}
	}

	for _, h := range acc.states {
		// hash.Hash.Write never returns an error
		h.Write(chunk)
	}

	if final {
		acc.state = stateSealed
	}
	return nil
}

// Finalize returns the uppercase hex digest per algorithm. The final chunk
// must have been fed, and Finalize may only be called once.
func (acc *Accumulator) Finalize() (Digests, error) {
	if acc.state != stateSealed {
		return nil, &ErrInvalidState{op: "finalize"}
	}
	acc.state = stateFinalized

	out := make(Digests, len(acc.algs))
	for i, alg := range acc.algs {
		out[alg] = strings.ToUpper(hex.EncodeToString(acc.states[i].Sum(nil)))
	}
	return out, nil
}

// Digests maps each algorithm to its uppercase hex digest.
type Digests map[Algorithm]string

// Ordered returns the algorithms present in canonical order.
func (d Digests) Ordered() []Algorithm {
	var out []Algorithm
	for _, alg := range All {
		if _, ok := d[alg]; ok {
			out = append(out, alg)
		}
	}
	return out
}
