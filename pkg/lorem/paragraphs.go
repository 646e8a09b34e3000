package lorem

import (
	"strings"

	"github.com/CTAG07/lipsum/pkg/markov"
)

// Sentence returns one sentence from the built-in chain. See SentenceFrom.
func Sentence(rng markov.Rand, maxWords int) string {
	s, err := SentenceFrom(Chain(), rng, maxWords)
	if err != nil {
		panic(err)
	}
	return s
}

// SentenceFrom walks c from a random sentence start until a token ends the
// sentence or maxWords words were produced. The result always ends with '.',
// '!' or '?'. maxWords <= 0 returns an empty string.
func SentenceFrom(c *markov.Chain, rng markov.Rand, maxWords int) (string, error) {
	if maxWords <= 0 {
		return "", nil
	}
	s, err := c.StartRandomly(rng)
	if err != nil {
		return "", err
	}

	tokens := make([]markov.Token, 0, min(maxWords, 32))
	for len(tokens) < maxWords {
		t := s.Next()
		tokens = append(tokens, t)
		if t.EOC() {
			break
		}
	}

	last := &tokens[len(tokens)-1]
	if !last.EOC() {
		trimmed := strings.TrimRight(string(*last), ",;:")
		if trimmed == "" {
			trimmed = string(*last)
		}
		*last = markov.Token(trimmed + ".")
	}
	return markov.Join(tokens), nil
}

// Paragraphs returns count paragraphs from the built-in chain. See ParagraphsFrom.
func Paragraphs(rng markov.Rand, count, minSentences, maxSentences, maxWords int) string {
	p, err := ParagraphsFrom(Chain(), rng, count, minSentences, maxSentences, maxWords)
	if err != nil {
		panic(err)
	}
	return p
}

// ParagraphsFrom generates count paragraphs of minSentences to maxSentences
// sentences each, separated by a blank line. Each sentence holds at most
// maxWords words. Out of range bounds are clamped: at least one sentence per
// paragraph, and maxSentences is raised to minSentences.
func ParagraphsFrom(c *markov.Chain, rng markov.Rand, count, minSentences, maxSentences, maxWords int) (string, error) {
	if count <= 0 || maxWords <= 0 {
		return "", nil
	}
	minSentences = max(minSentences, 1)
	maxSentences = max(maxSentences, minSentences)

	var builder strings.Builder
	for i := 0; i < count; i++ {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		numSentences := minSentences + rng.IntN(maxSentences-minSentences+1)
		for j := 0; j < numSentences; j++ {
			sentence, err := SentenceFrom(c, rng, maxWords)
			if err != nil {
				return "", err
			}
			if j > 0 {
				builder.WriteByte(' ')
			}
			builder.WriteString(sentence)
		}
	}
	return builder.String(), nil
}
