package markov

import (
	"bufio"
	"io"
)

// DefaultTokenizer is a default implementation of the Tokenizer interface.
// It splits text on white space, keeping punctuation attached to the words,
// and joins generated tokens with a configurable separator.
// Its behavior can be customized with functional options.
type DefaultTokenizer struct {
	separator    string
	maxTokenSize int
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator Sets the string used for joining tokens during generation.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) {
		t.separator = sep
	}
}

// WithMaxTokenSize sets the longest single word, in bytes, the stream
// tokenizer accepts before failing with bufio.ErrTooLong.
// Default: bufio.MaxScanTokenSize
func WithMaxTokenSize(n int) Option {
	return func(t *DefaultTokenizer) {
		if n > 0 {
			t.maxTokenSize = n
		}
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator:    " ",
		maxTokenSize: bufio.MaxScanTokenSize,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Join Returns the tokens joined by the configured separator.
func (t *DefaultTokenizer) Join(tokens []Token) string {
	return joinWith(tokens, t.separator)
}

// NewStream Returns the stream processor.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), t.maxTokenSize)
	scanner.Split(bufio.ScanWords)
	return &DefaultStreamTokenizer{scanner: scanner}
}

// DefaultStreamTokenizer is the default implementation of the StreamTokenizer interface.
// It uses a bufio.Scanner split on words to tokenize a stream.
type DefaultStreamTokenizer struct {
	scanner *bufio.Scanner
}

// Next returns the next token from the stream. It returns a Token and a nil error on
// success. When the stream is exhausted, it returns an empty Token and io.EOF.
// Any other error indicates a problem reading from the underlying stream.
func (s *DefaultStreamTokenizer) Next() (Token, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return Token(s.scanner.Text()), nil
}
