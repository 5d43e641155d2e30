// Command wikisearch builds and queries a sharded inverted index of a text
// corpus.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/cmd/wikisearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
