package markov

import (
	"encoding/binary"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token represents a single word exactly as it appeared in the input text,
// including any leading capital letter and trailing punctuation. Tokens are
// compared by value.
type Token string

// EOC reports whether the token closes a sentence, that is whether it ends
// with '.', '!' or '?'.
func (t Token) EOC() bool {
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// Capitalized reports whether the token begins with an upper-case letter.
func (t Token) Capitalized() bool {
	r, _ := utf8.DecodeRuneInString(string(t))
	return unicode.IsUpper(r)
}

// Key is an ordered window of tokens used to look up the possible
// continuations in a Chain. Every key stored in a chain has exactly
// Order() tokens.
type Key []Token

// NewKey builds a Key from plain strings.
func NewKey(words ...string) Key {
	key := make(Key, len(words))
	for i, w := range words {
		key[i] = Token(w)
	}
	return key
}

// String returns the tokens of the key joined by single spaces.
func (k Key) String() string {
	return Join(k)
}

// appendKey appends the lookup form of a window to buf. Each token is written
// with its length first, so distinct windows never share a lookup form even
// when tokens contain separator-like bytes.
func appendKey(buf []byte, window []Token) []byte {
	for _, t := range window {
		buf = binary.AppendUvarint(buf, uint64(len(t)))
		buf = append(buf, string(t)...)
	}
	return buf
}

// Tokenizer is an interface that defines the contract for splitting input text
// into tokens and for joining tokens back into text. This allows the chain to
// be independent of the specific tokenization strategy.
type Tokenizer interface {
	// NewStream returns a stateful StreamTokenizer for processing an io.Reader.
	NewStream(io.Reader) StreamTokenizer
	// Join builds the final generated string from a sequence of tokens.
	Join(tokens []Token) string
}

// StreamTokenizer is an interface for a stateful tokenizer that processes a
// stream of data, returning one token at a time.
type StreamTokenizer interface {
	// Next returns the next token from the stream. It returns io.EOF as the
	// error when the stream is fully consumed.
	Next() (Token, error)
}

// Tokenize splits text on runs of Unicode white space and returns the words
// in their original order. Punctuation stays attached to its word and no
// normalization is performed. Empty input yields a nil slice.
func Tokenize(text string) []Token {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	tokens := make([]Token, len(fields))
	for i, f := range fields {
		tokens[i] = Token(f)
	}
	return tokens
}

// Join concatenates tokens with a single space between each pair.
func Join(tokens []Token) string {
	return joinWith(tokens, " ")
}

func joinWith(tokens []Token, sep string) string {
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		return string(tokens[0])
	}
	n := len(sep) * (len(tokens) - 1)
	for _, t := range tokens {
		n += len(t)
	}
	var sb strings.Builder
	sb.Grow(n)
	sb.WriteString(string(tokens[0]))
	for _, t := range tokens[1:] {
		sb.WriteString(sep)
		sb.WriteString(string(t))
	}
	return sb.String()
}
