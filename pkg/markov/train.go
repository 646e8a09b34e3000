package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
)

// ctxCheckInterval is how many tokens TrainReader consumes between checks
// of its context.
const ctxCheckInterval = 1024

// Train slides a window of Order() tokens across tokens and, for every
// position where a full window and a following token both exist, appends that
// token to the follower list of the window. Sequences shorter than Order()+1
// tokens are a no-op. Repeated calls accumulate, but no window spans two calls.
func (c *Chain) Train(tokens []Token) {
	if len(tokens) <= c.order {
		return
	}
	var keyBuf []byte
	for i := 0; i+c.order < len(tokens); i++ {
		keyBuf = c.observe(keyBuf, tokens[i:i+c.order], tokens[i+c.order])
	}
}

// TrainText is a convenience wrapper around Train that tokenizes text with
// Tokenize first.
func (c *Chain) TrainText(text string) {
	c.Train(Tokenize(text))
}

// TrainReader processes a stream of text from an io.Reader, tokenizes it with
// the chain's tokenizer and trains the chain with it, exactly as a single Train
// call over every token of the stream would. Only a window of Order()+1 tokens
// is held in memory at any time.
//
// Observations recorded before a tokenizer error or a context cancellation
// are kept, since the chain never removes entries.
func (c *Chain) TrainReader(ctx context.Context, r io.Reader) error {
	stream := c.tokenizer.NewStream(r)

	window := make([]Token, 0, c.order+1)
	var keyBuf []byte
	var tokenCount, observed int

	for {
		if tokenCount%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("tokenizer error: %w", err)
		}
		tokenCount++

		if len(window) < c.order {
			window = append(window, token)
			continue
		}
		keyBuf = c.observe(keyBuf, window, token)
		observed++
		copy(window, window[1:])
		window[len(window)-1] = token
	}

	c.logger.InfoContext(ctx, "Training completed",
		slog.Int("order", c.order),
		slog.Int("tokens_processed", tokenCount),
		slog.Int("transitions_recorded", observed),
		slog.Int("prefixes", len(c.keys)),
	)
	return nil
}

// TrainString is a convenience wrapper around TrainReader for in-memory text
// that should go through the chain's own tokenizer.
func (c *Chain) TrainString(ctx context.Context, text string) error {
	return c.TrainReader(ctx, strings.NewReader(text))
}

// observe records a single window -> next observation. keyBuf is scratch
// space for the lookup key and is returned for reuse.
func (c *Chain) observe(keyBuf []byte, window []Token, next Token) []byte {
	keyBuf = appendKey(keyBuf[:0], window)
	l, ok := c.links[string(keyBuf)]
	if !ok {
		l = &link{key: slices.Clone(Key(window))}
		c.links[string(keyBuf)] = l
		c.keys = append(c.keys, l)
		if c.isStart(l.key[0]) {
			c.starters = append(c.starters, l)
		}
	}
	l.followers = append(l.followers, next)
	c.transitions++
	return keyBuf
}
