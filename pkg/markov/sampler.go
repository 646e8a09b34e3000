package markov

import (
	"context"
	"iter"
	"log/slog"
	"slices"
)

// Rand is the source of randomness a Sampler draws from. *math/rand/v2.Rand
// satisfies it. IntN must return a value in [0, n) and is only called with
// n > 0.
type Rand interface {
	IntN(n int) int
}

// Sampler walks a Chain one token at a time. It owns its randomness source
// and its current window, so any number of Samplers can walk the same trained
// chain concurrently. A Sampler itself is not safe for concurrent use.
//
// The stream of tokens is unbounded: when the walk reaches a window with no
// recorded followers, the Sampler restarts from a random sentence start and
// carries on.
type Sampler struct {
	chain   *Chain
	rng     Rand
	key     []Token
	keyBuf  []byte
	seeded  bool
	reseeds int
}

// StartRandomly returns a Sampler positioned on a key chosen uniformly among
// the keys that look like a sentence start, or among all keys when there are
// none. It fails with ErrEmptyModel if the chain has no keys at all.
func (c *Chain) StartRandomly(rng Rand) (*Sampler, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyModel
	}
	s := &Sampler{chain: c, rng: rng}
	s.key = slices.Clone(c.randomLink(rng).key)
	return s, nil
}

// StartFrom returns a Sampler positioned on the last Order() tokens of seed
// when that key exists in the chain, so that generation continues the seed.
// Otherwise it behaves like StartRandomly. Seeded reports which case applied.
func (c *Chain) StartFrom(rng Rand, seed []Token) (*Sampler, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyModel
	}
	if len(seed) >= c.order {
		tail := seed[len(seed)-c.order:]
		if c.lookup(tail) != nil {
			return &Sampler{chain: c, rng: rng, key: slices.Clone(tail), seeded: true}, nil
		}
	}
	return c.StartRandomly(rng)
}

// randomLink picks a starting link. The chain must not be empty.
func (c *Chain) randomLink(rng Rand) *link {
	if len(c.starters) > 0 {
		return c.starters[rng.IntN(len(c.starters))]
	}
	return c.keys[rng.IntN(len(c.keys))]
}

// Next advances the walk by one step and returns the first token of the
// window it stepped from. It never fails.
func (s *Sampler) Next() Token {
	s.keyBuf = appendKey(s.keyBuf[:0], s.key)
	l := s.chain.links[string(s.keyBuf)]
	if l == nil {
		// Dead end: restart from a random sentence start. Every stored key
		// has at least one follower, so the new key never dead-ends.
		l = s.chain.randomLink(s.rng)
		if logger := s.chain.logger; logger.Enabled(context.Background(), slog.LevelDebug) {
			logger.Debug("Dead end reached, restarting walk",
				slog.String("dead_end", Join(s.key)),
				slog.String("restart", l.key.String()),
			)
		}
		copy(s.key, l.key)
		s.reseeds++
	}

	next := l.followers[s.rng.IntN(len(l.followers))]
	out := s.key[0]
	copy(s.key, s.key[1:])
	s.key[len(s.key)-1] = next
	return out
}

// Take pulls n tokens from the sampler. n <= 0 yields nil.
func (s *Sampler) Take(n int) []Token {
	if n <= 0 {
		return nil
	}
	tokens := make([]Token, n)
	for i := range tokens {
		tokens[i] = s.Next()
	}
	return tokens
}

// All returns an unbounded iterator over the sampler's tokens. Breaking out
// of the range loop is the only way to stop it.
func (s *Sampler) All() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for {
			if !yield(s.Next()) {
				return
			}
		}
	}
}

// Key returns a copy of the sampler's current window.
func (s *Sampler) Key() Key {
	return slices.Clone(Key(s.key))
}

// Seeded reports whether StartFrom positioned the sampler on the seed's
// trailing key. When it did, the first Order() tokens the sampler emits are
// that trailing key.
func (s *Sampler) Seeded() bool {
	return s.seeded
}

// Reseeds returns how many times the sampler restarted after a dead end.
func (s *Sampler) Reseeds() int {
	return s.reseeds
}

// Chain returns the chain the sampler walks.
func (s *Sampler) Chain() *Chain {
	return s.chain
}
