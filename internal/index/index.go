package index

import (
	"context"
	"fmt"

	"weavoor/internal/chromemdb"
	"weavoor/internal/config"
	"weavoor/internal/db"
	"weavoor/internal/embedding"
	"weavoor/internal/models"
)

// Index stores summaries and answers nearest-neighbour queries by squared L2
// distance between embeddings. Upsert replaces an existing entry with the
// same id.
type Index interface {
	Upsert(ctx context.Context, id, document string, metadata map[string]string) error
	QueryNearest(ctx context.Context, document string, k int) ([]models.Neighbor, error)
	Get(ctx context.Context, id string) (*models.IndexEntry, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

var (
	_ Index = (*chromemdb.VectorDBManager)(nil)
	_ Index = (*db.Store)(nil)
)

// New opens the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.IndexConfig, embed embedding.Func) (Index, error) {
	switch cfg.Backend {
	case config.IndexChromem, "":
		return chromemdb.NewVectorDBManager(cfg.StoragePath, cfg.Collection, false, cfg.Compress, embed)
	case config.IndexPostgres:
		return db.Open(ctx, cfg.Postgres, embed)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}

// Neighbors queries the k nearest entries to document. Unless includeSelf is
// set, the entry stored under selfID is left out and one extra result is
// requested to make up for it.
func Neighbors(ctx context.Context, idx Index, selfID, document string, k int, includeSelf bool) ([]models.Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	if includeSelf {
		return idx.QueryNearest(ctx, document, k)
	}

	found, err := idx.QueryNearest(ctx, document, k+1)
	if err != nil {
		return nil, err
	}

	out := make([]models.Neighbor, 0, len(found))
	for _, n := range found {
		if n.ID == selfID {
			continue
		}
		out = append(out, n)
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}
