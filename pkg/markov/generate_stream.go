package markov

import (
	"context"
	"log/slog"
)

// GenerateStream pulls tokens from s on a separate goroutine and returns them
// on a read-only channel. This allows for processing the generated text
// token-by-token, which is useful for real-time consumers. The channel is
// closed after n tokens, or when ctx is cancelled. n <= 0 streams until
// cancellation.
//
// The sampler must not be used by the caller until the channel is closed.
func GenerateStream(ctx context.Context, s *Sampler, n int) <-chan Token {
	tokenChan := make(chan Token)

	go func() {
		defer close(tokenChan)

		for sent := 0; n <= 0 || sent < n; sent++ {
			if ctx.Err() != nil {
				return
			}
			token := s.Next()
			select {
			case <-ctx.Done():
				s.chain.logger.DebugContext(ctx, "Generation stream cancelled by context",
					slog.Int("tokens_sent", sent),
				)
				return
			case tokenChan <- token:
			}
		}
	}()

	return tokenChan
}

// GenerateStream starts a sampler from a random sentence start and streams n
// tokens from it. See the package-level GenerateStream.
func (c *Chain) GenerateStream(ctx context.Context, rng Rand, n int) (<-chan Token, error) {
	s, err := c.StartRandomly(rng)
	if err != nil {
		return nil, err
	}
	return GenerateStream(ctx, s, n), nil
}
