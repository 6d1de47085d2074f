package ngram

// Stats holds aggregate counts for a model.
type Stats struct {
	Prefixes    int // distinct prefix keys in the graph
	Edges       int // distinct prefix -> suffix links
	Transitions int // sum of all edge counts; the total observed n-grams
}

// Stats computes a snapshot of the model's size.
func (m *Model) Stats() Stats {
	s := Stats{Prefixes: len(m.graph)}
	for _, suffixes := range m.graph {
		s.Edges += len(suffixes)
		for _, count := range suffixes {
			s.Transitions += count
		}
	}
	return s
}
