package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer"
)

func newDocCountCmd(a *app) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "doccount",
		Short: "Count the documents of a corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := indexer.NewEngine(a.cfg.Indexer, nil, nil, nil).CountDocuments(cmd.Context(), input, output)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "corpus file (.tsv or .jsonl)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory receiving "+corpus.DocCountFile)
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}
