package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/events"
)

func newBuildCmd(a *app) *cobra.Command {
	var skipStore bool

	cmd := &cobra.Command{
		Use:   "build <stopwords-dir> <doccount-dir> <input-corpus> <index-dir> <partition-file>",
		Short: "Build the sharded index of a corpus",
		Long: `Build tokenizes the corpus, computes TF-IDF scored posting lists and writes
them to shard files in index-dir. Shard boundaries are sampled from the
terms and written to partition-file, with a copy kept in index-dir.

The documents are also stored in the configured corpus store so queries can
render abstracts. With kafka.enabled the finished build is announced on the
index-complete topic.`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var docs corpus.Store
			if !skipStore {
				s, err := corpus.OpenStore(ctx, a.cfg)
				if err != nil {
					return err
				}
				defer s.Close()
				docs = s
			}
			var announcer indexer.Announcer
			if a.cfg.Kafka.Enabled {
				p := events.NewPublisher(a.cfg.Kafka)
				defer p.Close()
				announcer = p
			}

			m, err := indexer.NewEngine(a.cfg.Indexer, docs, announcer, nil).Build(ctx, indexer.Job{
				StopWords:    args[0],
				DocCount:     args[1],
				Input:        args[2],
				IndexDir:     args[3],
				BoundaryPath: args[4],
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "generation %d: %d docs, %d terms, %d shards\n",
				m.Generation, m.DocCount, m.TermCount, m.NumShards)
			return err
		},
	}
	cmd.Flags().BoolVar(&skipStore, "skip-store", false, "do not load the documents into the corpus store")
	return cmd
}
