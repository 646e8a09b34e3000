package markov

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var (
	// ErrInvalidOrder is returned by NewChain when the requested order is
	// smaller than one.
	ErrInvalidOrder = errors.New("markov: chain order must be at least 1")
	// ErrEmptyModel is returned when a walk is requested from a chain that
	// has not recorded a single observation.
	ErrEmptyModel = errors.New("markov: model has no training data")
)

// link holds one key of the chain and every token observed right after it,
// duplicates included.
type link struct {
	key       Key
	followers []Token
}

// Chain is the main entry point of the library. It maps each observed
// window of Order() tokens to the multiset of tokens that followed it.
//
// A Chain is not safe for concurrent training. Once training is done it may be
// read by any number of goroutines, and Samplers never modify it.
type Chain struct {
	order       int
	links       map[string]*link
	keys        []*link // every link, in first-observed order
	starters    []*link // links whose first token passes isStart
	transitions int
	isStart     func(Token) bool
	tokenizer   Tokenizer
	logger      *slog.Logger
}

// ChainOption is a function that configures a Chain at construction time.
type ChainOption func(*Chain)

// WithStartPredicate sets the test used to decide whether a key looks like
// the beginning of a sentence, based on its first token.
// Default: Token.Capitalized
func WithStartPredicate(isStart func(Token) bool) ChainOption {
	return func(c *Chain) {
		if isStart != nil {
			c.isStart = isStart
		}
	}
}

// WithTokenizer sets the tokenizer used by TrainReader and by the string
// producing generation helpers.
// Default: NewDefaultTokenizer()
func WithTokenizer(t Tokenizer) ChainOption {
	return func(c *Chain) {
		if t != nil {
			c.tokenizer = t
		}
	}
}

// WithLogger sets the logger for the Chain. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChain creates an empty chain whose keys hold order tokens. An order
// smaller than one is rejected with ErrInvalidOrder.
func NewChain(order int, opts ...ChainOption) (*Chain, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}

	c := &Chain{
		order:     order,
		links:     make(map[string]*link),
		isStart:   Token.Capitalized,
		tokenizer: NewDefaultTokenizer(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetLogger sets the logger for the Chain. By default, all logs are discarded.
// Providing a `log/slog.Logger` will enable logging for training and for
// dead-end restarts during sampling.
func (c *Chain) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Tokenizer returns the tokenizer the chain trains and joins with.
func (c *Chain) Tokenizer() Tokenizer {
	return c.tokenizer
}
