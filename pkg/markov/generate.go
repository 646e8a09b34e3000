package markov

// Generate walks the chain from a random sentence start and returns n tokens
// joined by the chain's tokenizer. n <= 0 returns an empty string without
// looking at the chain. An empty chain fails with ErrEmptyModel.
func (c *Chain) Generate(rng Rand, n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	s, err := c.StartRandomly(rng)
	if err != nil {
		return "", err
	}
	return c.tokenizer.Join(s.Take(n)), nil
}

// GenerateFrom returns n tokens that continue seed. The output begins with
// the seed itself (truncated to n tokens) when its trailing key is known to
// the chain; otherwise the seed is still emitted and the continuation starts
// from a random sentence start.
func (c *Chain) GenerateFrom(rng Rand, n int, seed []Token) (string, error) {
	tokens, err := c.Continue(rng, n, seed)
	if err != nil {
		return "", err
	}
	return c.tokenizer.Join(tokens), nil
}

// GenerateFromString is a convenience wrapper around GenerateFrom that
// tokenizes the seed with Tokenize. An empty seed behaves like Generate.
func (c *Chain) GenerateFromString(rng Rand, n int, seed string) (string, error) {
	tokens := Tokenize(seed)
	if len(tokens) == 0 {
		return c.Generate(rng, n)
	}
	return c.GenerateFrom(rng, n, tokens)
}

// Continue returns exactly n tokens: the seed followed by sampler output.
// A seeded sampler re-emits the seed's trailing key first, so those tokens
// are taken from the sampler rather than from the seed.
func (c *Chain) Continue(rng Rand, n int, seed []Token) ([]Token, error) {
	if n <= 0 {
		return nil, nil
	}
	s, err := c.StartFrom(rng, seed)
	if err != nil {
		return nil, err
	}

	head := seed
	if s.Seeded() {
		head = seed[:len(seed)-c.order]
	}
	if len(head) >= n {
		return head[:n:n], nil
	}

	tokens := make([]Token, 0, n)
	tokens = append(tokens, head...)
	for len(tokens) < n {
		tokens = append(tokens, s.Next())
	}
	return tokens, nil
}

