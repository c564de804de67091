package vectorindex

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/qdrant/go-client/qdrant"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logging"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

var _ core.VectorIndex = (*QdrantIndex)(nil)

// QdrantConfig configures the Qdrant index.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantIndex writes vectors to one collection, creating it on first use.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	log        hclog.Logger

	mu      sync.Mutex
	ensured bool
}

func NewQdrantIndex(cfg QdrantConfig, log hclog.Logger) (*QdrantIndex, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required for Qdrant")
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	return &QdrantIndex{client: client, collection: cfg.Collection, log: logging.OrNull(log)}, nil
}

func (q *QdrantIndex) Name() string { return "qdrant:" + q.collection }

func (q *QdrantIndex) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx, uint64(len(records[0].Values))); err != nil {
		return err
	}
	points, err := toQdrantPoints(records)
	if err != nil {
		return err
	}
	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	q.log.Debug("qdrant upsert", "collection", q.collection, "count", len(points))
	return nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, size uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ensured {
		return nil
	}

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check if collection exists: %w", err)
	}
	if !exists {
		err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     size,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		q.log.Info("created qdrant collection", "collection", q.collection, "size", size)
	}
	q.ensured = true
	return nil
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

// pointID maps a record ID onto the UUID space Qdrant requires. The same ID always maps to the same point.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func toQdrantPoints(records []models.VectorRecord) ([]*qdrant.PointStruct, error) {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		payload := make(map[string]*qdrant.Value, len(r.Metadata)+1)
		for key, value := range r.Metadata {
			v, err := qdrant.NewValue(value)
			if err != nil {
				return nil, fmt.Errorf("failed to convert metadata value for key %s: %w", key, err)
			}
			payload[key] = v
		}
		id, err := qdrant.NewValue(r.ID)
		if err != nil {
			return nil, err
		}
		payload["vectorId"] = id

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Values...),
			Payload: payload,
		})
	}
	return points, nil
}
