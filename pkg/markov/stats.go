package markov

// ModelStats holds aggregated statistics for a single chain.
type ModelStats struct {
	Order       int `json:"order"`       // The number of tokens per key.
	Prefixes    int `json:"prefixes"`    // The number of distinct keys; equal to Size().
	Links       int `json:"links"`       // The number of distinct key -> token pairs.
	Transitions int `json:"transitions"` // The total number of recorded observations.
	Starters    int `json:"starters"`    // The number of keys that can start a sentence.
	Vocabulary  int `json:"vocabulary"`  // The number of distinct tokens in keys or followers.
}

// Stats returns a snapshot of statistics for the chain. It walks every key,
// so it costs time proportional to the number of transitions.
func (c *Chain) Stats() ModelStats {
	vocab := make(map[Token]struct{})
	var links int
	seen := make(map[Token]struct{})
	for _, l := range c.keys {
		for _, t := range l.key {
			vocab[t] = struct{}{}
		}
		clear(seen)
		for _, t := range l.followers {
			vocab[t] = struct{}{}
			seen[t] = struct{}{}
		}
		links += len(seen)
	}

	return ModelStats{
		Order:       c.order,
		Prefixes:    len(c.keys),
		Links:       links,
		Transitions: c.transitions,
		Starters:    len(c.starters),
		Vocabulary:  len(vocab),
	}
}
