package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"weavoor/internal/config"
	"weavoor/internal/embedding"
	"weavoor/internal/models"
)

// Weave is one row of the pgvector similarity index.
type Weave struct {
	bun.BaseModel `bun:"table:weaves,alias:w"`
	ID            string            `bun:"id,pk"`
	Document      string            `bun:"document,notnull"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	Embedding     Vector            `bun:"embedding,notnull,type:vector"`
	Distance      float64           `bun:"distance,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(debug),
		bundebug.WithVerbose(true),
	))
	return db
}

// ConnectDB opens dsn with the pure-Go pgdriver, or with lib/pq when
// driver is "pq".
func ConnectDB(dsn, driver string) (*sql.DB, error) {
	switch driver {
	case "pq":
		return sql.Open("postgres", dsn)
	case "pgdriver", "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), nil
	default:
		return nil, fmt.Errorf("unknown postgres driver %q", driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	_, err := db.NewCreateTable().Model((*Weave)(nil)).IfNotExists().Exec(ctx)
	return err
}

func DropWeaves(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Weave)(nil)).IfExists().Exec(ctx)
	return err
}

// Store is a similarity index backed by PostgreSQL and pgvector.
type Store struct {
	db    *bun.DB
	embed embedding.Func
}

// Open connects, prepares the schema and returns a ready Store.
func Open(ctx context.Context, cfg config.PostgresConfig, embed embedding.Func) (*Store, error) {
	sqldb, err := ConnectDB(cfg.DSN, cfg.Driver)
	if err != nil {
		return nil, err
	}
	db := NewDB(sqldb, cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	log.Debug().Str("driver", cfg.Driver).Msg("Opened postgres index")
	return NewStore(db, embed), nil
}

func NewStore(db *bun.DB, embed embedding.Func) *Store {
	return &Store{db: db, embed: embed}
}

// Upsert stores document under id, replacing any row with the same id.
func (s *Store) Upsert(ctx context.Context, id, document string, metadata map[string]string) error {
	vec, err := s.embed(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}

	row := &Weave{
		ID:        id,
		Document:  document,
		Metadata:  metadata,
		Embedding: vec,
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("document = EXCLUDED.document").
		Set("metadata = EXCLUDED.metadata").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert weave: %w", err)
	}
	return nil
}

// QueryNearest returns up to k rows ordered by ascending squared L2 distance.
func (s *Store) QueryNearest(ctx context.Context, document string, k int) ([]models.Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := s.embed(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var rows []Weave
	err = s.db.NewSelect().
		Model(&rows).
		Column("id", "document", "metadata").
		ColumnExpr("power(embedding <-> ?, 2) AS distance", Vector(vec)).
		OrderExpr("distance ASC").
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	neighbors := make([]models.Neighbor, 0, len(rows))
	for _, r := range rows {
		neighbors = append(neighbors, models.Neighbor{
			ID:       r.ID,
			Document: r.Document,
			Metadata: r.Metadata,
			Distance: r.Distance,
		})
	}
	return neighbors, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.IndexEntry, error) {
	var row Weave
	err := s.db.NewSelect().
		Model(&row).
		Column("id", "document", "metadata", "embedding").
		Where("id = ?", id).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load weave %s: %w", id, err)
	}
	return &models.IndexEntry{
		ID:        row.ID,
		Embedding: row.Embedding,
		Document:  row.Document,
		Metadata:  row.Metadata,
	}, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Weave)(nil)).Count(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
