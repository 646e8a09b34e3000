package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/CTAG07/lipsum/pkg/lorem"
	"github.com/spf13/cobra"
)

// defaultWords is printed when no valid word count is given.
const defaultWords = 25

var (
	configPath string
	seedFlag   uint64
)

var rootCmd = &cobra.Command{
	Use:   "lipsum [words]",
	Short: "Generate lorem ipsum text",
	Long: `Prints lorem ipsum filler text generated by a Markov chain trained on
the standard passage and on Cicero's De finibus. The text always opens with
"Lorem ipsum dolor sit amet". An invalid word count falls back to 25.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "lipsum.json", "path to the JSON config file")
	rootCmd.PersistentFlags().Uint64Var(&seedFlag, "seed", 0, "seed for reproducible output (0 is random)")
}

func runRoot(cmd *cobra.Command, args []string) error {
	n := defaultWords
	if len(args) == 1 {
		if v, err := strconv.Atoi(args[0]); err == nil && v >= 0 {
			n = v
		}
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), lorem.LipsumWithRand(lorem.NewRand(seedFlag), n))
	return err
}

// loadRuntime loads the config and builds a logger writing to the command's
// error stream.
func loadRuntime(cmd *cobra.Command) (*Config, *slog.Logger, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cmd.ErrOrStderr(), cfg.Server.LogLevel), nil
}
