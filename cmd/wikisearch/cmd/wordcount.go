package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/stopwords"
)

func newWordCountCmd(a *app) *cobra.Command {
	var input, output string
	var k int

	cmd := &cobra.Command{
		Use:   "wordcount",
		Short: "Select the most frequent corpus words as stop words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := indexer.NewEngine(a.cfg.Indexer, nil, nil, nil)
			path, words, err := e.SelectStopWords(cmd.Context(), input, output, k)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d stop words written to %s\n", len(words), path)
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "corpus file (.tsv or .jsonl)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory receiving "+stopwords.FileName)
	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of stop words (default indexer.stopWordCount)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}
