package ngram

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Snapshot is the serializable representation of a model: a plain
// string-keyed nested mapping of string-to-integer counts. This shape is a
// structural requirement of the graph (and the reason prefix keys are
// concatenated strings rather than composite keys), so any JSON-capable
// consumer can read an exported model.
type Snapshot struct {
	Order int                       `json:"order"`
	Graph map[string]map[string]int `json:"graph"`
}

// Snapshot returns a deep copy of the model's graph in interchange form.
// Mutating the returned maps does not affect the model.
func (m *Model) Snapshot() *Snapshot {
	graph := make(map[string]map[string]int, len(m.graph))
	for prefix, suffixes := range m.graph {
		copied := make(map[string]int, len(suffixes))
		for suffix, count := range suffixes {
			copied[suffix] = count
		}
		graph[prefix] = copied
	}
	return &Snapshot{Order: m.order, Graph: graph}
}

// Export writes the model to w as indented JSON. Map keys are marshaled in
// sorted order, so exporting the same model twice produces identical bytes.
func (m *Model) Export(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(m.Snapshot())
}

// FromSnapshot builds a model from interchange form. The snapshot's order
// and counts are validated as if they had been observed directly.
//
// A nested JSON mapping carries no observation order, so the rebuilt model
// adopts sorted key order as its first-observation order. That keeps
// sampling deterministic, but a model restored from a snapshot may iterate
// suffixes differently than the model that produced it; persistence layers
// that must round-trip sampling behavior exactly should store edges in
// observation order instead (see Edges and ObserveEdge).
func FromSnapshot(s *Snapshot) (*Model, error) {
	m, err := NewModel(s.Order)
	if err != nil {
		return nil, err
	}
	prefixes := make([]string, 0, len(s.Graph))
	for prefix := range s.Graph {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		suffixes := make([]string, 0, len(s.Graph[prefix]))
		for suffix := range s.Graph[prefix] {
			suffixes = append(suffixes, suffix)
		}
		sort.Strings(suffixes)
		for _, suffix := range suffixes {
			if err := m.ObserveEdge(prefix, suffix, s.Graph[prefix][suffix]); err != nil {
				return nil, fmt.Errorf("snapshot edge %q -> %q: %w", prefix, suffix, err)
			}
		}
	}
	return m, nil
}

// Import reads a JSON snapshot from r and builds a model from it.
func Import(r io.Reader) (*Model, error) {
	var snapshot Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("ngram: failed to decode snapshot: %w", err)
	}
	return FromSnapshot(&snapshot)
}
