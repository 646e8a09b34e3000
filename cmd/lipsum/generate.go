package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/CTAG07/lipsum/pkg/corpus"
	"github.com/CTAG07/lipsum/pkg/lorem"
	"github.com/CTAG07/lipsum/pkg/markov"
	"github.com/spf13/cobra"
)

var (
	genFiles      []string
	genCorpus     string
	genOrder      int
	genWords      int
	genFrom       string
	genParagraphs int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate text from files or a stored corpus",
	Long: `Trains a chain on the given files and/or a stored corpus and prints text
sampled from it. Files may be plain text, Markdown or HTML; the format is taken
from the file extension. Without any source the built-in lorem ipsum chain is
used.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringSliceVarP(&genFiles, "file", "f", nil, "train on this file (repeatable)")
	generateCmd.Flags().StringVarP(&genCorpus, "corpus", "c", "", "train on this stored corpus")
	generateCmd.Flags().IntVar(&genOrder, "order", 2, "key length of a chain built from files only")
	generateCmd.Flags().IntVarP(&genWords, "words", "n", defaultWords, "number of words to generate")
	generateCmd.Flags().StringVar(&genFrom, "from", "", "text to continue")
	generateCmd.Flags().IntVarP(&genParagraphs, "paragraphs", "p", 0, "generate this many paragraphs of sentences instead of words")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := buildGenerateChain(ctx, cmd)
	if err != nil {
		return err
	}

	rng := lorem.NewRand(seedFlag)
	var text string
	switch {
	case genParagraphs > 0:
		text, err = lorem.ParagraphsFrom(c, rng, genParagraphs, 3, 7, 20)
	default:
		text, err = c.GenerateFromString(rng, genWords, genFrom)
	}
	if errors.Is(err, markov.ErrEmptyModel) {
		return errors.New("nothing to generate from: the training text holds fewer words than the chain order")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

// buildGenerateChain trains one chain on the selected sources. The stored
// corpus decides the order when one is given.
func buildGenerateChain(ctx context.Context, cmd *cobra.Command) (*markov.Chain, error) {
	if genCorpus == "" && len(genFiles) == 0 {
		return lorem.Chain(), nil
	}

	var c *markov.Chain
	if genCorpus != "" {
		cfg, logger, err := loadRuntime(cmd)
		if err != nil {
			return nil, err
		}
		store, closeStore, err := openStore(cfg.Server.DatabasePath, logger)
		if err != nil {
			return nil, err
		}
		defer closeStore()

		info, err := store.GetCorpus(ctx, genCorpus)
		if err != nil {
			return nil, err
		}
		if cmd.Flags().Changed("order") && genOrder != info.Order {
			return nil, fmt.Errorf("corpus %q has order %d, not %d", info.Name, info.Order, genOrder)
		}
		if c, err = store.BuildChain(ctx, info, markov.WithLogger(logger)); err != nil {
			return nil, err
		}
	} else {
		var err error
		if c, err = markov.NewChain(genOrder); err != nil {
			return nil, err
		}
	}

	for _, path := range genFiles {
		if err := trainFile(ctx, c, path); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func trainFile(ctx context.Context, c *markov.Chain, path string) error {
	text, err := readText(path)
	if err != nil {
		return err
	}
	if err = c.TrainString(ctx, text); err != nil {
		return fmt.Errorf("failed to train on %s: %w", path, err)
	}
	return nil
}

// readText returns the prose of the file at path, with Markdown and HTML
// markup removed according to the file extension.
func readText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	text, err := corpus.Extract(f, corpus.DetectFormat(path, ""))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return text, nil
}
