package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/CTAG07/lipsum/pkg/corpus"
	"github.com/spf13/cobra"
)

var (
	corpusOrder  int
	corpusTitle  string
	exportOutput string
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage stored corpora",
	Long: `Stored corpora are named collections of texts kept in the SQLite database
from the config file. Chains are trained from them on demand.`,
}

var corpusCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create an empty corpus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, cfg *Config, store *corpus.Store) error {
			order := cfg.Generation.DefaultOrder
			if cmd.Flags().Changed("order") {
				order = corpusOrder
			}
			info, err := store.CreateCorpus(ctx, args[0], order)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created corpus %s (order %d)\n", info.Name, info.Order)
			return err
		})
	},
}

var corpusAddCmd = &cobra.Command{
	Use:   "add [name] [file...]",
	Short: "Add text files to a corpus",
	Long: `Adds each file as a separate text. Markdown and HTML files are reduced to
their prose first, based on the file extension.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, _ *Config, store *corpus.Store) error {
			info, err := store.GetCorpus(ctx, args[0])
			if err != nil {
				return err
			}
			for _, path := range args[1:] {
				text, err := readText(path)
				if err != nil {
					return err
				}
				title := corpusTitle
				if title == "" {
					title = filepath.Base(path)
				}
				if _, err = store.AddText(ctx, info, title, text); err != nil {
					return fmt.Errorf("failed to add %s: %w", path, err)
				}
				if _, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s\n", path, info.Name); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored corpora",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd, func(ctx context.Context, _ *Config, store *corpus.Store) error {
			corpora, err := store.ListCorpora(ctx)
			if err != nil {
				return err
			}
			if len(corpora) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No corpora found.")
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tORDER\tTEXTS\tBYTES\tCREATED")
			for _, info := range corpora {
				_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n",
					info.Name, info.Order, info.Texts, info.Bytes, info.Created.Format("2006-01-02"))
			}
			return tw.Flush()
		})
	},
}

var corpusRemoveCmd = &cobra.Command{
	Use:     "rm [name]",
	Aliases: []string{"remove"},
	Short:   "Remove a corpus and its texts",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, _ *Config, store *corpus.Store) error {
			info, err := store.GetCorpus(ctx, args[0])
			if err != nil {
				return err
			}
			if err = store.RemoveCorpus(ctx, info); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed corpus %s\n", info.Name)
			return err
		})
	},
}

var corpusExportCmd = &cobra.Command{
	Use:   "export [name]",
	Short: "Write a corpus as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, _ *Config, store *corpus.Store) error {
			info, err := store.GetCorpus(ctx, args[0])
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if exportOutput != "" {
				f, err := os.Create(exportOutput)
				if err != nil {
					return err
				}
				defer func(f *os.File) {
					_ = f.Close()
				}(f)
				w = f
			}
			return store.ExportCorpus(ctx, info, w)
		})
	},
}

var corpusImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Read a corpus written by export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, _ *Config, store *corpus.Store) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func(f *os.File) {
				_ = f.Close()
			}(f)

			info, err := store.ImportCorpus(ctx, f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported corpus %s (%d texts)\n", info.Name, info.Texts)
			return err
		})
	},
}

func init() {
	corpusCreateCmd.Flags().IntVar(&corpusOrder, "order", 2, "key length of the corpus chain (default from config)")
	corpusAddCmd.Flags().StringVar(&corpusTitle, "title", "", "title of the added texts (default: file name)")
	corpusExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to this file instead of stdout")

	corpusCmd.AddCommand(corpusCreateCmd, corpusAddCmd, corpusListCmd, corpusRemoveCmd, corpusExportCmd, corpusImportCmd)
	rootCmd.AddCommand(corpusCmd)
}

// withStore runs fn against the store named in the config.
func withStore(cmd *cobra.Command, fn func(context.Context, *Config, *corpus.Store) error) error {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg.Server.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, cfg, store)
}
