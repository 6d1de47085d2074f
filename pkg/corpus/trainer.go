package corpus

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/CTAG07/drosera/pkg/ngram"
)

// maxSentenceLength prevents a single unbroken sentence from accumulating
// unbounded memory; anything longer is split at this many tokens.
const maxSentenceLength = 4096

// Trainer feeds tokenized text into an ngram.Model. Each sentence produced
// by the tokenizer is windowed into n-grams, and the model's terminal token
// is appended as the final suffix so that trained models produce finite
// random walks.
type Trainer struct {
	tokenizer Tokenizer
	logger    *slog.Logger
}

// NewTrainer returns a Trainer using the given tokenizer.
func NewTrainer(tokenizer Tokenizer) *Trainer {
	return &Trainer{
		tokenizer: tokenizer,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Trainer. By default, all logs are
// discarded.
func (tr *Trainer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		tr.logger = logger
	}
}

// Train tokenizes the data stream and records every n-gram of each sentence
// in the model, including the terminal n-gram formed by the sentence's last
// order-1 tokens and the terminal token. Sentences shorter than order-1
// tokens carry no usable window and are skipped.
func (tr *Trainer) Train(m *ngram.Model, data io.Reader) error {
	stream := tr.tokenizer.NewStream(data)

	var sentence []string
	var sentences, ngrams, skipped int64

	flush := func() error {
		if len(sentence) == 0 {
			return nil
		}
		added, err := tr.trainSentence(m, sentence)
		if err != nil {
			return err
		}
		if added == 0 {
			skipped++
		} else {
			sentences++
			ngrams += added
		}
		sentence = sentence[:0]
		return nil
	}

	for {
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("tokenizer error: %w", err)
		}

		if !token.End && len(sentence) < maxSentenceLength {
			sentence = append(sentence, token.Text)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if !token.End {
			// Oversized sentence: the token that forced the split still
			// belongs to the next one.
			sentence = append(sentence, token.Text)
		}
	}
	if err := flush(); err != nil {
		return err
	}

	tr.logger.Info("training completed",
		slog.Int("order", m.Order()),
		slog.Int64("sentences", sentences),
		slog.Int64("ngrams", ngrams),
		slog.Int64("sentences_skipped", skipped),
	)
	return nil
}

// trainSentence windows one sentence into n-grams and adds them to the
// model, returning how many were added.
func (tr *Trainer) trainSentence(m *ngram.Model, sentence []string) (int64, error) {
	order := m.Order()
	if len(sentence) < order-1 {
		tr.logger.Debug("sentence too short for model order",
			slog.Int("tokens", len(sentence)),
			slog.Int("order", order),
		)
		return 0, nil
	}

	// The terminal token closes the sentence, so the final window's suffix
	// marks the end of a walk.
	tokens := make([]string, 0, len(sentence)+1)
	tokens = append(tokens, sentence...)
	tokens = append(tokens, ngram.TerminalToken)

	var added int64
	for i := 0; i+order <= len(tokens); i++ {
		if err := m.AddNGram(tokens[i : i+order]...); err != nil {
			return added, fmt.Errorf("adding n-gram at token %d: %w", i, err)
		}
		added++
	}
	return added, nil
}

// Render joins a generated token sequence back into text using the
// tokenizer's separator and end rules. The terminal token, if present, is
// rendered as the tokenizer's end mark.
func Render(t Tokenizer, tokens []string) string {
	var b strings.Builder
	var last string
	first := true
	for _, token := range tokens {
		if token == ngram.TerminalToken {
			b.WriteString(t.End(last))
			continue
		}
		if !first {
			b.WriteString(t.Separator(last, token))
		}
		b.WriteString(token)
		last = token
		first = false
	}
	return b.String()
}
