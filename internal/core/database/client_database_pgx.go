package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/contexta-ingest/internal/logging"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

var _ DbClient = (*DatabaseClient)(nil)

type DatabaseClient struct {
	db  *sql.DB
	log hclog.Logger
}

func NewDatabaseClient(ctx context.Context, databaseURL string, log hclog.Logger) (*DatabaseClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	log = logging.OrNull(log)

	db, err := sql.Open("pgx", databaseURL)
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

	applied, err := EnsureBootstrapped(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if applied {
		log.Info("applied database schema", "version", schemaVersion)
	}

	return &DatabaseClient{db: db, log: log}, nil
}

func (c *DatabaseClient) Name() string { return "pgvector" }

func (c *DatabaseClient) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Upsert writes one batch in a single transaction. A failed row rolls back the whole batch.
func (c *DatabaseClient) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_vectors
			(id, file_name, file_type, chunk_index, total_chunks, text, embedding, embedding_model, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding,
			embedding_model = EXCLUDED.embedding_model,
			metadata = EXCLUDED.metadata
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range records {
		row, err := toChunkRow(records[i])
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			row.ID, row.FileName, row.FileType, row.ChunkIndex, row.TotalChunks,
			row.Text, pgvector.NewVector(row.Embedding), row.Model, row.Metadata,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s: %w", row.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.log.Debug("pgvector upsert", "count", len(records))
	return nil
}

type chunkRow struct {
	ID          string
	FileName    string
	FileType    string
	ChunkIndex  int
	TotalChunks int
	Text        string
	Embedding   []float32
	Model       string
	Metadata    []byte
}

func toChunkRow(r models.VectorRecord) (chunkRow, error) {
	meta, err := json.Marshal(r.Metadata)
	if err != nil {
		return chunkRow{}, fmt.Errorf("encode metadata for %s: %w", r.ID, err)
	}
	if r.Metadata == nil {
		meta = []byte("{}")
	}
	return chunkRow{
		ID:          r.ID,
		FileName:    metaString(r.Metadata, "filename"),
		FileType:    metaString(r.Metadata, "fileType"),
		ChunkIndex:  metaInt(r.Metadata, "chunkIndex"),
		TotalChunks: metaInt(r.Metadata, "totalChunks"),
		Text:        metaString(r.Metadata, "textContent"),
		Embedding:   r.Values,
		Model:       metaString(r.Metadata, "embeddingModel"),
		Metadata:    meta,
	}, nil
}

func metaString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func metaInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
