package ngram

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidOrder is returned by NewModel when the requested order is
	// too small to describe a prefix -> suffix transition.
	ErrInvalidOrder = errors.New("ngram: order must be at least 2")
	// ErrTokenCount is returned when a token sequence does not have the
	// length an operation requires (order tokens for AddNGram, order-1 for
	// the prefix-based operations).
	ErrTokenCount = errors.New("ngram: wrong number of tokens")
	// ErrOrderMismatch is returned by Update when the two models were
	// built with different orders.
	ErrOrderMismatch = errors.New("ngram: model orders do not match")
	// ErrInvalidCount is returned by ObserveEdge for counts below one.
	// Every count in the graph is a positive integer.
	ErrInvalidCount = errors.New("ngram: count must be positive")
)

// TerminalToken is the designated end-of-sequence suffix. A model that
// should produce finite walks must have been trained with it: RandomSequence
// stops only when this token is drawn.
const TerminalToken = ""

// Token is the minimal capability the model requires of caller-side token
// types: conversion to a canonical string form. Equality of tokens is
// equality of their canonical forms. All model operations take those
// canonical strings directly; Canonical bridges richer token types.
type Token interface {
	String() string
}

// Canonical converts a sequence of Tokens into their canonical string forms,
// preserving order.
func Canonical(tokens ...Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.String()
	}
	return out
}

// Model is a graph-based n-gram model. The graph maps a prefix key (the
// first order-1 tokens of an n-gram, concatenated) to the suffixes observed
// after that prefix and their occurrence counts.
//
// The prefix key concatenation is deliberately separator-free and therefore
// lossy: the token sequences ("a", "bc") and ("ab", "c") both produce the
// key "abc" and collide into the same graph node. This keeps the graph
// representable as a plain string-keyed nested mapping for interchange (see
// Snapshot); callers whose tokens can concatenate ambiguously inherit the
// collision.
//
// A Model is not safe for concurrent use. Counts only grow: there is no
// operation that removes or decrements an edge.
type Model struct {
	order int
	graph map[string]map[string]int

	// First-observation order, tracked so that iteration (and therefore
	// weighted sampling) is deterministic. prefixSeen orders prefix keys;
	// suffixSeen orders the suffixes of each prefix.
	prefixSeen []string
	suffixSeen map[string][]string

	rand RandSource
}

// NewModel returns an empty model that accepts n-grams of exactly the given
// order. Orders below 2 cannot relate a prefix to a suffix and are rejected
// with ErrInvalidOrder.
func NewModel(order int) (*Model, error) {
	if order < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	return &Model{
		order:      order,
		graph:      make(map[string]map[string]int),
		suffixSeen: make(map[string][]string),
	}, nil
}

// Order returns the n-gram length this model was constructed with.
func (m *Model) Order() int {
	return m.order
}

// prefixKey concatenates tokens without a separator. See the collision note
// on Model.
func prefixKey(tokens []string) string {
	return strings.Join(tokens, "")
}

// AddNGram records one occurrence of an n-gram: the final token is counted
// as a suffix of the prefix formed by the preceding order-1 tokens. The
// sequence must contain exactly Order tokens; a failed call leaves the graph
// unchanged.
func (m *Model) AddNGram(tokens ...string) error {
	if len(tokens) != m.order {
		return fmt.Errorf("%w: got %d, want %d", ErrTokenCount, len(tokens), m.order)
	}
	m.observe(prefixKey(tokens[:m.order-1]), tokens[m.order-1], 1)
	return nil
}

// ObserveEdge records count occurrences of suffix after an already-derived
// prefix key. It is the low-level hook used by imports and persistence
// layers that hold prefix keys rather than token sequences (the key
// concatenation is not reversible, so AddNGram cannot serve them).
func (m *Model) ObserveEdge(prefix, suffix string, count int) error {
	if count < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}
	m.observe(prefix, suffix, count)
	return nil
}

// observe is the single mutation point for the graph. It keeps the
// first-observation bookkeeping consistent with the counts.
func (m *Model) observe(prefix, suffix string, count int) {
	suffixes, ok := m.graph[prefix]
	if !ok {
		suffixes = make(map[string]int)
		m.graph[prefix] = suffixes
		m.prefixSeen = append(m.prefixSeen, prefix)
	}
	if _, ok := suffixes[suffix]; !ok {
		m.suffixSeen[prefix] = append(m.suffixSeen[prefix], suffix)
	}
	suffixes[suffix] += count
}

// Update merges every edge count of other into m. Prefixes and suffixes
// unknown to m are created; shared edges have their counts added. The merge
// is strictly additive and not idempotent: applying the same Update twice
// doubles other's contribution. Models of differing order cannot be merged.
//
// The order check is the only failure condition; once merging begins it
// cannot fail partway.
func (m *Model) Update(other *Model) error {
	if m.order != other.order {
		return fmt.Errorf("%w: %d and %d", ErrOrderMismatch, m.order, other.order)
	}
	for _, prefix := range other.prefixSeen {
		for _, suffix := range other.suffixSeen[prefix] {
			m.observe(prefix, suffix, other.graph[prefix][suffix])
		}
	}
	return nil
}

// Edges calls fn for every edge in the graph, in first-observation order of
// prefix and then suffix. Iteration stops early if fn returns false.
func (m *Model) Edges(fn func(prefix, suffix string, count int) bool) {
	for _, prefix := range m.prefixSeen {
		for _, suffix := range m.suffixSeen[prefix] {
			if !fn(prefix, suffix, m.graph[prefix][suffix]) {
				return
			}
		}
	}
}
