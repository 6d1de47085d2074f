package ngram

import (
	"errors"
	"math/rand/v2"
)

// ErrDeadEnd is returned by RandomSequence when the current window has no
// observed suffixes. The walk's only defined stopping condition is drawing
// the terminal token; a window the model has never seen leaves it with no
// next step, so the sequence built so far is returned alongside this error
// rather than a silently truncated result.
var ErrDeadEnd = errors.New("ngram: no observed suffixes for current window")

// RandSource yields uniformly distributed floats in [0, 1). *rand.Rand from
// math/rand/v2 satisfies it; tests substitute a fixed sequence to make
// sampling reproducible.
type RandSource interface {
	Float64() float64
}

// SetRand sets the random source used by the sampling operations. By
// default the shared math/rand/v2 source is used.
func (m *Model) SetRand(r RandSource) {
	m.rand = r
}

func (m *Model) draw() float64 {
	if m.rand != nil {
		return m.rand.Float64()
	}
	return rand.Float64()
}

// RandomSuffix draws a suffix for the given prefix, weighted by observed
// counts: a uniform threshold in [0, 1) is drawn and suffixes are walked in
// first-observation order, returning the first whose cumulative probability
// reaches it. The second return is false when the prefix has never been
// observed; no real suffix value is returned for that case, and the
// empty-string terminal token is a real suffix, reported as ("", true).
func (m *Model) RandomSuffix(prefix ...string) (string, bool, error) {
	dist, err := m.SuffixDist(prefix...)
	if err != nil {
		return "", false, err
	}
	if len(dist) == 0 {
		return "", false, nil
	}
	threshold := m.draw()
	mass := 0.0
	for _, sp := range dist {
		mass += sp.Prob
		if mass >= threshold {
			return sp.Suffix, true, nil
		}
	}
	// Rounding can leave the accumulated mass a hair under the threshold;
	// the draw must still land inside the distribution.
	return dist[len(dist)-1].Suffix, true, nil
}

// RandomNGram draws a suffix for the prefix and returns the full n-gram.
// When the prefix is unseen the returned sequence is a copy of the prefix
// alone and the second return is false.
func (m *Model) RandomNGram(prefix ...string) ([]string, bool, error) {
	suffix, ok, err := m.RandomSuffix(prefix...)
	if err != nil {
		return nil, false, err
	}
	ngram := make([]string, 0, len(prefix)+1)
	ngram = append(ngram, prefix...)
	if !ok {
		return ngram, false, nil
	}
	return append(ngram, suffix), true, nil
}

// walkOptions configures RandomSequence.
type walkOptions struct {
	maxSteps int
}

// WalkOption configures a RandomSequence call.
type WalkOption func(*walkOptions)

// WithMaxSteps caps the number of suffixes a walk may draw. The default of
// 0 means unbounded, the model's documented contract: a walk runs until the
// terminal token is drawn or a dead end is hit. The cap is a safety valve
// for models that may lack terminal training; reaching it is a normal stop
// and the returned sequence simply carries no terminal token.
func WithMaxSteps(n int) WalkOption {
	return func(o *walkOptions) { o.maxSteps = n }
}

// RandomSequence walks the graph starting from the given prefix, which must
// contain exactly Order-1 tokens. Each step draws a suffix for the sliding
// window of the last Order-1 generated tokens and appends it to the output.
// The walk stops when the drawn suffix is TerminalToken, which is included
// in the returned sequence.
//
// Termination depends on the model having been trained with the terminal
// token as an explicit suffix. An unobserved window does not terminate the
// walk; it strands it, and the partial sequence is returned with ErrDeadEnd.
func (m *Model) RandomSequence(prefix []string, opts ...WalkOption) ([]string, error) {
	if err := m.checkPrefix(prefix); err != nil {
		return nil, err
	}

	options := &walkOptions{}
	for _, opt := range opts {
		opt(options)
	}

	window := make([]string, len(prefix))
	copy(window, prefix)
	sequence := make([]string, len(prefix))
	copy(sequence, prefix)

	for steps := 0; options.maxSteps <= 0 || steps < options.maxSteps; steps++ {
		suffix, ok, err := m.RandomSuffix(window...)
		if err != nil {
			return sequence, err
		}
		if !ok {
			return sequence, ErrDeadEnd
		}
		sequence = append(sequence, suffix)
		if suffix == TerminalToken {
			return sequence, nil
		}
		window = append(window[1:], suffix)
	}
	return sequence, nil
}
