package knowledge

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// qdrantScrollLimit caps a vendor candidate scan. The engine is
// single-user; document libraries stay far below this.
const qdrantScrollLimit = 10000

// QdrantConfig holds connection parameters for a Qdrant-backed vector store.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance. Qdrant is
// used purely as durable keyed storage with payload filters — candidate
// ranking stays local so behaviour is identical across store backends.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists (creating it if necessary), and returns a ready-to-use VectorStore.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, persistErr("qdrant client", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return persistErr("qdrant collection check", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return persistErr(fmt.Sprintf("qdrant create collection %q", s.cfg.Collection), err)
	}
	return nil
}

// pointID derives a deterministic Qdrant point UUID from the record's
// upsert key so re-indexing overwrites rather than duplicates.
func pointID(chunkID string, vendor Vendor) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID+"/"+string(vendor))).String()
}

// Put upserts a batch of records. A Qdrant upsert call is atomic per request.
func (s *QdrantStore) Put(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(rec.Chunk.ID, rec.Vendor)),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":    rec.Chunk.ID,
				"document_id": rec.Chunk.DocumentID,
				"ordinal":     int64(rec.Chunk.Ordinal),
				"content":     rec.Chunk.Text,
				"vendor":      string(rec.Vendor),
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return persistErr("qdrant upsert", err)
	}
	return nil
}

// QueryByVendor scrolls every record tagged with the given vendor,
// including stored vectors, so the ranker can score them locally.
func (s *QdrantStore) QueryByVendor(ctx context.Context, vendor Vendor) ([]Record, error) {
	limit := uint32(qdrantScrollLimit)
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.cfg.Collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("vendor", string(vendor)),
			},
		},
		Limit:       &limit,
		WithPayload: qdrant.NewWithPayload(true),
		WithVectors: qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, persistErr("qdrant scroll", err)
	}

	records := make([]Record, 0, len(points))
	for _, p := range points {
		rec := Record{Vendor: vendor}
		if vs := p.GetVectors(); vs != nil {
			rec.Vector = vs.GetVector().GetData()
		}
		if payload := p.GetPayload(); payload != nil {
			if v, ok := payload["chunk_id"]; ok {
				rec.Chunk.ID = v.GetStringValue()
			}
			if v, ok := payload["document_id"]; ok {
				rec.Chunk.DocumentID = v.GetStringValue()
			}
			if v, ok := payload["ordinal"]; ok {
				rec.Chunk.Ordinal = int(v.GetIntegerValue())
			}
			if v, ok := payload["content"]; ok {
				rec.Chunk.Text = v.GetStringValue()
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// DeleteByDocument removes every point whose payload references the
// document, across all vendors.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		return persistErr("qdrant delete", err)
	}
	return nil
}

// Client exposes the underlying Qdrant gRPC client for health probes.
func (s *QdrantStore) Client() *qdrant.Client {
	return s.client
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

var _ VectorStore = (*QdrantStore)(nil)
