// Package lorem generates lorem ipsum filler text from a Markov chain trained
// on the classical lorem ipsum passage and the first book of Cicero's
// De finibus bonorum et malorum, from which that passage is derived.
//
// Lipsum keeps the familiar "Lorem ipsum dolor sit amet" opening and lets the
// chain continue from there, so that longer texts drift into random but
// Latin-looking prose.
package lorem

import (
	_ "embed"
	"math/rand/v2"
	"sync"

	"github.com/CTAG07/lipsum/pkg/markov"
)

// Order is the key length of the built-in chain.
const Order = 2

// Prefix is the opening every Lipsum text starts with.
const Prefix = "Lorem ipsum dolor sit amet, consectetur adipiscing elit,"

var (
	// LoremIpsum is the standard lorem ipsum passage.
	//go:embed corpus/lorem-ipsum.txt
	LoremIpsum string

	// LiberPrimus holds the opening sections (1 to 4) and sections 32 and 33
	// of Cicero's De finibus bonorum et malorum, liber primus. LoremIpsum is a
	// scrambled version of parts of it.
	//go:embed corpus/liber-primus.txt
	LiberPrimus string
)

var (
	chain     *markov.Chain
	chainOnce sync.Once
	prefix    = markov.Tokenize(Prefix)
)

// Chain returns the shared chain trained on LoremIpsum and LiberPrimus. It is
// built on first use and must be treated as read-only.
func Chain() *markov.Chain {
	chainOnce.Do(func() {
		c, err := markov.NewChain(Order)
		if err != nil {
			panic(err)
		}
		c.TrainText(LoremIpsum)
		c.TrainText(LiberPrimus)
		chain = c
	})
	return chain
}

// NewRand returns a PCG source seeded with seed, or with a random seed when
// seed is 0.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// Lipsum returns n words of lorem ipsum text. The text starts with Prefix and
// continues with words from the built-in chain. n <= 0 returns an empty string.
func Lipsum(n int) string {
	return LipsumWithRand(NewRand(0), n)
}

// LipsumWithRand is Lipsum with an explicit randomness source, which makes the
// output reproducible.
func LipsumWithRand(rng markov.Rand, n int) string {
	text, err := LipsumFrom(Chain(), rng, n)
	if err != nil {
		// The built-in chain is never empty.
		panic(err)
	}
	return text
}

// LipsumFrom returns n words that start with Prefix and continue with words
// from c. If c does not know the end of Prefix the continuation starts at a
// random sentence instead. An empty c fails with markov.ErrEmptyModel.
func LipsumFrom(c *markov.Chain, rng markov.Rand, n int) (string, error) {
	tokens, err := c.Continue(rng, n, prefix)
	if err != nil {
		return "", err
	}
	return markov.Join(tokens), nil
}

// Words returns n words from the built-in chain, starting at a random
// sentence. Unlike Lipsum it does not start with Prefix.
func Words(rng markov.Rand, n int) string {
	text, err := Chain().Generate(rng, n)
	if err != nil {
		panic(err)
	}
	return text
}
