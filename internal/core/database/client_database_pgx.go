package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/docvault/internal/config"
	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/models"
)

// ChunkMirror keeps a relational copy of every ingested chunk in Postgres/pgvector.
type ChunkMirror struct {
	db *sql.DB
}

var _ core.ChunkRepository = (*ChunkMirror)(nil)

// NewChunkMirror connects, pings and bootstraps the schema.
func NewChunkMirror(ctx context.Context, cfg *config.Config) (*ChunkMirror, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	dsn, err := BuildDSN(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &ChunkMirror{db: db}, nil
}

// BuildDSN appends verify-ca SSL parameters to databaseURL when a root
// certificate is configured.
func BuildDSN(databaseURL, sslCertPath string) (string, error) {
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is empty")
	}
	if sslCertPath == "" {
		return databaseURL, nil
	}
	if _, err := os.Stat(sslCertPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", sslCertPath, err)
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", sslCertPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *ChunkMirror) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// ReplaceDocumentChunks deletes every chunk of documentID and inserts rows in
// a single transaction.
func (c *ChunkMirror) ReplaceDocumentChunks(ctx context.Context, documentID string, rows []models.DocumentChunk) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete chunks: %w", err)
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, position, text, embedding, section, chunk_type, filename, page_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range rows {
		ch := &rows[i]
		if ch.DocumentID != documentID {
			_ = tx.Rollback()
			return core.Validationf("row %d belongs to document %s, not %s", i, ch.DocumentID, documentID)
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.Position, ch.Text, pgvector.NewVector(ch.Embedding),
			ch.Section, ch.ChunkType, ch.Filename, ch.PageNumber, ch.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (c *ChunkMirror) GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	const q = `
		SELECT id, document_id, position, text, embedding, section, chunk_type, filename, page_number, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY position ASC
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		var (
			ch  models.DocumentChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(
			&ch.ID, &ch.DocumentID, &ch.Position, &ch.Text, &emb,
			&ch.Section, &ch.ChunkType, &ch.Filename, &ch.PageNumber, &ch.CreatedAt,
		); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}
