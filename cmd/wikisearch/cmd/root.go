// Package cmd holds the wikisearch subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
)

// app carries what every subcommand shares once the root flags are parsed.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "wikisearch",
		Short: "Build and query a sharded full-text index",
		Long: `wikisearch indexes a corpus of (docId, text) records into TF-IDF scored
posting lists split across shard files, and answers boolean and phrase
queries against it.

Typical pipeline:
  wikisearch wordcount --input corpus.tsv --output data/stopwords
  wikisearch doccount  --input corpus.tsv --output data/doccount
  wikisearch build data/stopwords data/doccount corpus.tsv data/index data/partition.txt
  wikisearch query "apple and (pie or tart)" 1`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(newWordCountCmd(a))
	cmd.AddCommand(newDocCountCmd(a))
	cmd.AddCommand(newBuildCmd(a))
	cmd.AddCommand(newQueryCmd(a))
	cmd.AddCommand(newDocCmd(a))
	return cmd
}

// Execute runs the CLI with a context cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// setup loads the config and sends logs to stderr so stdout stays parseable.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	a.cfg = cfg
	return nil
}
