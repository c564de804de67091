package vectorindex

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logging"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

var _ core.VectorIndex = (*PineconeIndex)(nil)

// PineconeConfig configures the Pinecone index.
type PineconeConfig struct {
	APIKey    string
	IndexName string
	Namespace string
	// Host overrides the control plane host; empty uses the Pinecone default.
	Host string
}

// PineconeIndex writes vectors to one Pinecone index over a single connection.
type PineconeIndex struct {
	conn      *pinecone.IndexConnection
	indexName string
	log       hclog.Logger
}

// NewPineconeIndex resolves the index host and opens a data plane connection.
func NewPineconeIndex(ctx context.Context, cfg PineconeConfig, log hclog.Logger) (*PineconeIndex, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Pinecone")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("index name is required for Pinecone")
	}

	params := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	if cfg.Host != "" {
		params.Host = cfg.Host
	}
	client, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	index, err := client.DescribeIndex(ctx, cfg.IndexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %s: %w", cfg.IndexName, err)
	}

	conn, err := client.Index(pinecone.NewIndexConnParams{
		Host:      index.Host,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	log = logging.OrNull(log)
	log.Info("connected to pinecone", "index", cfg.IndexName, "host", index.Host)
	return &PineconeIndex{conn: conn, indexName: cfg.IndexName, log: log}, nil
}

func (p *PineconeIndex) Name() string { return "pinecone:" + p.indexName }

// Upsert writes one batch. Callers keep batches at or below 100 vectors.
func (p *PineconeIndex) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	vectors, err := toPineconeVectors(records)
	if err != nil {
		return err
	}
	n, err := p.conn.UpsertVectors(ctx, vectors)
	if err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	p.log.Debug("pinecone upsert", "index", p.indexName, "count", n)
	return nil
}

func (p *PineconeIndex) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func toPineconeVectors(records []models.VectorRecord) ([]*pinecone.Vector, error) {
	out := make([]*pinecone.Vector, 0, len(records))
	for _, r := range records {
		var md *pinecone.Metadata
		if len(r.Metadata) > 0 {
			s, err := structpb.NewStruct(r.Metadata)
			if err != nil {
				return nil, fmt.Errorf("failed to convert metadata for %s: %w", r.ID, err)
			}
			md = s
		}
		out = append(out, &pinecone.Vector{
			Id:       r.ID,
			Values:   r.Values,
			Metadata: md,
		})
	}
	return out, nil
}
