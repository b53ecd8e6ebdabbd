package cli

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/markdave123-py/docvault/internal/app"
	"github.com/markdave123-py/docvault/internal/core/ingestion_engine"
)

var (
	fileDocID    string
	fileIndexDir string
)

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Ingest one local document",
	Long: `Extract, chunk, embed and index a single file. PDFs are read page by page
with OCR for image-only pages; other formats are converted to plain text.

The per-document index lands in <index-dir>/doc_<id> and is merged into the
aggregate index in <index-dir>.`,
	Args: cobra.ExactArgs(1),
	RunE: runFile,
}

func init() {
	fileCmd.Flags().StringVar(&fileDocID, "id", "", "document id (default: random UUID)")
	fileCmd.Flags().StringVar(&fileIndexDir, "index-dir", "", "index directory (default: INDEX_DIR)")
	rootCmd.AddCommand(fileCmd)
}

func runFile(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if fileIndexDir != "" {
		cfg.IndexDir = fileIndexDir
	}
	if fileDocID == "" {
		fileDocID = uuid.NewString()
	}

	pipeline, closeEmbedder, err := app.BuildPipeline(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	res, err := pipeline.Ingest(cmd.Context(), ingestion_engine.IngestRequest{
		DocumentID:  fileDocID,
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
