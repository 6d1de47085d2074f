package ngram

import "fmt"

// SuffixProb is one entry of an ordered suffix distribution.
type SuffixProb struct {
	Suffix string
	Prob   float64
}

// NGramProb pairs a full n-gram with its probability, as returned by NGrams.
type NGramProb struct {
	Tokens []string
	Prob   float64
}

// checkPrefix validates that prefix has exactly order-1 tokens.
func (m *Model) checkPrefix(prefix []string) error {
	if len(prefix) != m.order-1 {
		return fmt.Errorf("%w: got %d, want prefix of %d", ErrTokenCount, len(prefix), m.order-1)
	}
	return nil
}

// Suffixes returns the probability of each suffix observed after the given
// prefix, as count/total over all of that prefix's counts. The mapping is
// empty if the prefix has never been observed.
//
// The total is recomputed on every call, so the cost is linear in the number
// of distinct suffixes for the prefix. Reads never mutate the model.
func (m *Model) Suffixes(prefix ...string) (map[string]float64, error) {
	if err := m.checkPrefix(prefix); err != nil {
		return nil, err
	}
	suffixes := m.graph[prefixKey(prefix)]
	probs := make(map[string]float64, len(suffixes))
	if len(suffixes) == 0 {
		return probs, nil
	}
	total := 0
	for _, count := range suffixes {
		total += count
	}
	for suffix, count := range suffixes {
		probs[suffix] = float64(count) / float64(total)
	}
	return probs, nil
}

// SuffixDist is the ordered form of Suffixes: the same probabilities,
// iterable in first-observation order. Sampling consumes this form so that
// a fixed random source always selects the same suffix.
func (m *Model) SuffixDist(prefix ...string) ([]SuffixProb, error) {
	if err := m.checkPrefix(prefix); err != nil {
		return nil, err
	}
	key := prefixKey(prefix)
	suffixes := m.graph[key]
	if len(suffixes) == 0 {
		return nil, nil
	}
	total := 0
	for _, count := range suffixes {
		total += count
	}
	dist := make([]SuffixProb, 0, len(suffixes))
	for _, suffix := range m.suffixSeen[key] {
		dist = append(dist, SuffixProb{
			Suffix: suffix,
			Prob:   float64(suffixes[suffix]) / float64(total),
		})
	}
	return dist, nil
}

// NGrams returns the distribution of Suffixes keyed by whole n-grams: one
// entry per observed suffix, holding the prefix with that suffix appended
// and the unchanged probability. Entries come back in first-observation
// order.
func (m *Model) NGrams(prefix ...string) ([]NGramProb, error) {
	dist, err := m.SuffixDist(prefix...)
	if err != nil {
		return nil, err
	}
	ngrams := make([]NGramProb, len(dist))
	for i, sp := range dist {
		tokens := make([]string, 0, m.order)
		tokens = append(tokens, prefix...)
		tokens = append(tokens, sp.Suffix)
		ngrams[i] = NGramProb{Tokens: tokens, Prob: sp.Prob}
	}
	return ngrams, nil
}
