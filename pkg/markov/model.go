package markov

import "slices"

// Order returns the number of tokens in every key of the chain.
func (c *Chain) Order() int {
	return c.order
}

// Size returns the number of distinct keys recorded in the chain.
func (c *Chain) Size() int {
	return len(c.keys)
}

// IsEmpty reports whether the chain has no recorded observations.
func (c *Chain) IsEmpty() bool {
	return len(c.keys) == 0
}

// Followers returns every token observed after key, in observation order and
// with duplicates retained. An unseen key, or a key whose length differs from
// the chain order, yields an empty result. The returned slice is a copy.
func (c *Chain) Followers(key Key) []Token {
	l := c.lookup(key)
	if l == nil {
		return nil
	}
	return slices.Clone(l.followers)
}

// Contains reports whether key has at least one recorded follower.
func (c *Chain) Contains(key Key) bool {
	return c.lookup(key) != nil
}

// Keys returns every key in the chain in the order it was first observed.
func (c *Chain) Keys() []Key {
	return cloneKeys(c.keys)
}

// Starters returns the keys whose first token looks like the start of a
// sentence, in the order they were first observed.
func (c *Chain) Starters() []Key {
	return cloneKeys(c.starters)
}

func (c *Chain) lookup(window []Token) *link {
	if len(window) != c.order {
		return nil
	}
	var buf [64]byte
	return c.links[string(appendKey(buf[:0], window))]
}

func cloneKeys(links []*link) []Key {
	if len(links) == 0 {
		return nil
	}
	keys := make([]Key, len(links))
	for i, l := range links {
		keys[i] = slices.Clone(l.key)
	}
	return keys
}
