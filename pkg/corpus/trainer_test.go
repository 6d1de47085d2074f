package corpus

import (
	"math"
	"strings"
	"testing"

	"github.com/CTAG07/drosera/pkg/ngram"
)

// trainModel builds a model of the given order and trains it on text.
func trainModel(t *testing.T, order int, text string) *ngram.Model {
	t.Helper()
	m, err := ngram.NewModel(order)
	if err != nil {
		t.Fatalf("NewModel(%d) error = %v", order, err)
	}
	tr := NewTrainer(NewDefaultTokenizer())
	if err := tr.Train(m, strings.NewReader(text)); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return m
}

func TestTrainWindowsSentences(t *testing.T) {
	m := trainModel(t, 2, "one fish two fish. red fish blue fish.")

	testCases := []struct {
		prefix string
		want   map[string]float64
	}{
		{prefix: "one", want: map[string]float64{"fish": 1.0}},
		{prefix: "fish", want: map[string]float64{
			"two":               1.0 / 4.0,
			"blue":              1.0 / 4.0,
			ngram.TerminalToken: 2.0 / 4.0,
		}},
		{prefix: "red", want: map[string]float64{"fish": 1.0}},
	}

	for _, tc := range testCases {
		got, err := m.Suffixes(tc.prefix)
		if err != nil {
			t.Fatalf("Suffixes(%q) error = %v", tc.prefix, err)
		}
		if len(got) != len(tc.want) {
			t.Errorf("Suffixes(%q) = %v, want %v", tc.prefix, got, tc.want)
			continue
		}
		for suffix, prob := range tc.want {
			if math.Abs(got[suffix]-prob) > 1e-12 {
				t.Errorf("Suffixes(%q)[%q] = %v, want %v", tc.prefix, suffix, got[suffix], prob)
			}
		}
	}
}

// Sentence boundaries must not leak n-grams across sentences.
func TestTrainRespectsBoundaries(t *testing.T) {
	m := trainModel(t, 2, "one fish. red fish.")

	got, err := m.Suffixes("fish")
	if err != nil {
		t.Fatalf("Suffixes() error = %v", err)
	}
	if _, crossed := got["red"]; crossed {
		t.Errorf("n-gram crossed a sentence boundary: %v", got)
	}
	if got[ngram.TerminalToken] != 1.0 {
		t.Errorf("Suffixes(fish) = %v, want only the terminal token", got)
	}
}

func TestTrainSkipsShortSentences(t *testing.T) {
	// For order 3, a one-token sentence has no full window even with the
	// terminal token appended.
	m := trainModel(t, 3, "hi. one fish two.")

	stats := m.Stats()
	// "one fish two" + terminal yields 2 trigrams; "hi" yields none.
	if stats.Transitions != 2 {
		t.Errorf("Stats().Transitions = %d, want 2: %+v", stats.Transitions, stats)
	}
}

func TestTrainedModelWalksToTerminal(t *testing.T) {
	m := trainModel(t, 2, "one fish two fish.")
	// The "fish" window splits evenly between "two" and the terminal; the
	// scripted draws take "two" the first time and the terminal the second.
	m.SetRand(&seqRand{values: []float64{0, 0, 0, 0.9}})

	got, err := m.RandomSequence([]string{"one"})
	if err != nil {
		t.Fatalf("RandomSequence() error = %v", err)
	}
	want := []string{"one", "fish", "two", "fish", ngram.TerminalToken}
	if len(got) != len(want) {
		t.Fatalf("RandomSequence() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RandomSequence() = %v, want %v", got, want)
		}
	}
}

// seqRand replays a scripted sequence of draws, cycling when exhausted.
type seqRand struct {
	values []float64
	next   int
}

func (r *seqRand) Float64() float64 {
	v := r.values[r.next%len(r.values)]
	r.next++
	return v
}

func TestRender(t *testing.T) {
	tok := NewDefaultTokenizer()

	testCases := []struct {
		name   string
		tokens []string
		want   string
	}{
		{
			name:   "terminal becomes end mark",
			tokens: []string{"one", "fish", "two", "fish", ngram.TerminalToken},
			want:   "one fish two fish.",
		},
		{
			name:   "punctuation attaches",
			tokens: []string{"one", ",", "two", ngram.TerminalToken},
			want:   "one, two.",
		},
		{
			name:   "no terminal",
			tokens: []string{"one", "fish"},
			want:   "one fish",
		},
		{
			name:   "empty sequence",
			tokens: nil,
			want:   "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Render(tok, tc.tokens); got != tc.want {
				t.Errorf("Render(%v) = %q, want %q", tc.tokens, got, tc.want)
			}
		})
	}
}
