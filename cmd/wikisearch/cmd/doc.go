package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
)

func newDocCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doc <docId>",
		Short: "Print a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("document id %q is not a number", args[0])
			}
			store, err := corpus.OpenStore(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			doc, err := store.Get(cmd.Context(), index.DocID(id))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), doc.Text)
			return err
		},
	}
}
