package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/result"
)

// ResultFile receives the serialized result when query runs with -o.
const ResultFile = "result.txt"

// recordDelimiter terminates every document in query output.
const recordDelimiter = "$RST$"

func newQueryCmd(a *app) *cobra.Command {
	var indexDir, outputDir string

	cmd := &cobra.Command{
		Use:   "query <query> [page]",
		Short: "Search the index and print one page of results",
		Long: `Query evaluates a boolean query and prints "count/pageCount" followed by,
for each document of the page, its id, title and highlighted abstract. Each
document ends with $RST$.

Grammar: clauses joined by "and", each a list of branches joined by "or".
A branch is a word, a phrase of several words or "not" followed by a word.
A clause starting with "not" excludes its whole or-list. Pages hold 10
documents; a page past the end shows the last one.

Examples:
  wikisearch query cake
  wikisearch query 'apple and not pie' 2
  wikisearch query 'chocolate cake or brownie' -o out`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page := 1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("page %q is not a number", args[1])
				}
				page = n
			}
			return a.query(cmd.Context(), cmd.OutOrStdout(), args[0], page, indexDir, outputDir)
		},
	}
	cmd.Flags().StringVarP(&indexDir, "index", "i", "", "index directory (default search.indexDir)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory receiving "+ResultFile)
	return cmd
}

func (a *app) query(ctx context.Context, w io.Writer, query string, page int, indexDir, outputDir string) error {
	opts := searcher.OptionsFromConfig(a.cfg)
	if indexDir != "" {
		opts.IndexDir = indexDir
	}
	docs, err := corpus.OpenStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer docs.Close()
	store, err := cache.OpenStore(ctx, a.cfg, nil)
	if err != nil {
		return err
	}
	qc := cache.New(store, nil)
	defer qc.Close()

	svc, err := searcher.New(ctx, opts, docs, qc, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	resp, err := svc.Query(ctx, query, page)
	if err != nil {
		return err
	}
	if err := writeResponse(w, resp); err != nil {
		return err
	}
	if outputDir != "" {
		return writeResult(outputDir, resp.Result)
	}
	return nil
}

func writeResponse(w io.Writer, resp searcher.Response) error {
	if _, err := fmt.Fprintf(w, "%d/%d\n", resp.Count, resp.PageCount); err != nil {
		return err
	}
	for _, h := range resp.Hits {
		if _, err := fmt.Fprintf(w, "%d\n%s\n%s%s", h.DocID, h.Title, h.Abstract, recordDelimiter); err != nil {
			return err
		}
	}
	return nil
}

func writeResult(dir string, res result.SearchResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ResultFile), []byte(res.String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}
