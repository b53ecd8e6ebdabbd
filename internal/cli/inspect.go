package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/docvault/internal/app"
	"github.com/markdave123-py/docvault/internal/core/ingestion_engine"
	"github.com/markdave123-py/docvault/internal/core/vectorindex"
)

var (
	inspectQuery string
	inspectTopK  int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <dir>",
	Short: "Show the documents stored in an index directory",
	Long: `Print the entry count, vector dimension and entries per document of an index.

With --query the text is embedded with the configured provider and the k
nearest chunks are listed with their file, page and section.

Examples:
  ingest inspect ./faiss_index
  ingest inspect ./faiss_index --query "Kündigungsfrist" -k 3`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectQuery, "query", "q", "", "text to search the index for")
	inspectCmd.Flags().IntVarP(&inspectTopK, "top-k", "k", 5, "number of hits to show with --query")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	store, err := vectorindex.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no index found in %s", args[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "entries:   %d\n", store.Len())
	fmt.Fprintf(out, "dimension: %d\n", store.Dimension())

	stats := store.Stats()
	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "  %-36s %d\n", id, stats[id])
	}

	if inspectQuery == "" {
		return nil
	}
	return searchIndex(cmd, out, store)
}

func searchIndex(cmd *cobra.Command, out io.Writer, store *vectorindex.Store) error {
	provider, closeProvider, err := app.NewEmbeddingProvider(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("couldn't initialize the embedder, %w", err)
	}
	defer closeProvider()

	embedder := ingestion_engine.NewEmbedder(provider, cfg.EmbedTimeout, store.Dimension())
	vectors, err := embedder.Embed(cmd.Context(), []string{inspectQuery})
	if err != nil {
		return err
	}

	hits, err := store.Search(vectors[0], inspectTopK)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nquery: %q\n", inspectQuery)
	for i, h := range hits {
		m := h.Chunk.Metadata
		fmt.Fprintf(out, "%d. [%.3f] %s page %d %s (document %s)\n", i+1, h.Score, m.Filename, m.PageNumber, m.Section, m.DocumentID)
		fmt.Fprintf(out, "   %s\n", preview(h.Chunk.Text, 120))
	}
	return nil
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return text
}
