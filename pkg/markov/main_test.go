package markov

import (
	"fmt"
	"go/build"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// foxTokens is the canonical small training sequence used across the tests.
var foxTokens = Tokenize("The quick brown fox jumps over the lazy dog .")

// setupTestChain creates an order-n chain trained on text.
func setupTestChain(t *testing.T, order int, text string) *Chain {
	t.Helper()
	c, err := NewChain(order)
	if err != nil {
		t.Fatalf("NewChain(%d) error = %v", order, err)
	}
	c.TrainText(text)
	return c
}

// newTestRand returns a deterministic randomness source.
func newTestRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// syntheticCorpus builds a text of words distinct words in sentences of
// seven words, with a few repeats so that the chain has branches.
func syntheticCorpus(words int) string {
	var sb strings.Builder
	for i := 0; i < words; i++ {
		w := fmt.Sprintf("w%03d", i)
		if i%7 == 0 {
			w = "W" + w[1:]
		}
		if i%7 == 6 {
			w += "."
		}
		sb.WriteString(w)
		sb.WriteByte(' ')
		if i%5 == 0 {
			// revisit an earlier word to create forks
			sb.WriteString(fmt.Sprintf("w%03d ", i/2))
		}
	}
	return sb.String()
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = syntheticCorpus(5000)
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
