// Package corpus turns raw text into the ordered token sequences the ngram
// model consumes, and generated sequences back into text. It is the
// collaborator side of the model's contract: tokens in, counts out.
package corpus

import (
	"bufio"
	"io"
	"regexp"
)

// Token is a single tokenized unit of text. End marks a sequence boundary
// (typically the end of a sentence); the trainer converts boundaries into
// the model's empty-string terminal suffix.
type Token struct {
	Text string
	End  bool
}

// Tokenizer splits input text into tokens and knows how to join generated
// tokens back together. Implementations decide the tokenization policy; the
// model itself has none.
type Tokenizer interface {
	// NewStream returns a stateful tokenizer over r.
	NewStream(r io.Reader) StreamTokenizer
	// Separator returns the string placed between prev and next when
	// rendering a generated sequence.
	Separator(prev, next string) string
	// End returns the string that closes a rendered sequence, given its
	// last token.
	End(last string) string
}

// StreamTokenizer yields tokens one at a time, returning io.EOF once the
// underlying stream is exhausted.
type StreamTokenizer interface {
	Next() (*Token, error)
}

// DefaultTokenizer is a regex word-and-punctuation tokenizer. Sentence
// ending punctuation produces End tokens. Its behavior can be adjusted with
// functional options.
type DefaultTokenizer struct {
	separator  string
	endMark    string
	splitRegex *regexp.Regexp
	endRegex   *regexp.Regexp
	noSepRegex *regexp.Regexp
}

// Option configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator sets the string used to join tokens when rendering.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) { t.separator = sep }
}

// WithEndMark sets the string that closes a rendered sequence.
// Default: "."
func WithEndMark(end string) Option {
	return func(t *DefaultTokenizer) { t.endMark = end }
}

// WithSplitRegex sets the regex used to extract tokens from input text.
// Default: `[\w']+|[.,!?;]`
func WithSplitRegex(expr string) Option {
	return func(t *DefaultTokenizer) { t.splitRegex = regexp.MustCompile(expr) }
}

// WithEndRegex sets the regex that decides whether a token ends a sentence.
// Default: `^[.!?]$`
func WithEndRegex(expr string) Option {
	return func(t *DefaultTokenizer) { t.endRegex = regexp.MustCompile(expr) }
}

// WithNoSepRegex sets the regex for tokens that should not be preceded by a
// separator when rendering (punctuation, by default).
func WithNoSepRegex(expr string) Option {
	return func(t *DefaultTokenizer) { t.noSepRegex = regexp.MustCompile(expr) }
}

// NewDefaultTokenizer creates a tokenizer with default settings, overridden
// by any provided options.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator: " ",
		endMark:   ".",
		// Sequences of word characters, or single punctuation marks.
		splitRegex: regexp.MustCompile(`[\w']+|[.,!?;]`),
		endRegex:   regexp.MustCompile(`^[.!?]$`),
		noSepRegex: regexp.MustCompile(`^[.,!?;]`),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Separator returns the configured separator, or nothing before tokens that
// attach directly (punctuation).
func (t *DefaultTokenizer) Separator(_, next string) string {
	if t.noSepRegex.MatchString(next) {
		return ""
	}
	return t.separator
}

// End returns the configured end mark, or nothing after a token that is
// already punctuation.
func (t *DefaultTokenizer) End(last string) string {
	if t.noSepRegex.MatchString(last) {
		return ""
	}
	return t.endMark
}

// NewStream returns a streaming tokenizer over r.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	return &defaultStream{
		scanner:    bufio.NewScanner(r),
		splitRegex: t.splitRegex,
		endRegex:   t.endRegex,
	}
}

type defaultStream struct {
	scanner    *bufio.Scanner
	buffer     []string
	splitRegex *regexp.Regexp
	endRegex   *regexp.Regexp
}

// Next returns the next token, or io.EOF when the stream is exhausted.
func (s *defaultStream) Next() (*Token, error) {
	for len(s.buffer) == 0 {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		s.buffer = s.splitRegex.FindAllString(s.scanner.Text(), -1)
	}

	word := s.buffer[0]
	s.buffer = s.buffer[1:]
	return &Token{Text: word, End: s.endRegex.MatchString(word)}, nil
}
