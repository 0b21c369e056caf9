package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"weavoor/internal/embedding"
	"weavoor/internal/models"
)

// VectorDBManager keeps one chromem-go collection, persisted under dbPath
// unless created in memory.
type VectorDBManager struct {
	db         *chromem.DB
	collection *chromem.Collection
	embed      chromem.EmbeddingFunc
	dbPath     string
	compress   bool
}

// NewVectorDBManager opens (or creates) the database and the named collection.
func NewVectorDBManager(dbPath, collectionName string, inMemory, compress bool, embed embedding.Func) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	m := &VectorDBManager{
		db:       db,
		embed:    chromem.EmbeddingFunc(embed),
		dbPath:   dbPath,
		compress: compress,
	}
	if _, err := m.GetOrCreateCollection(collectionName); err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", dbPath).
		Bool("in_memory", inMemory).
		Str("collection", collectionName).
		Int("count", m.collection.Count()).
		Msg("Opened chromem index")
	return m, nil
}

// GetOrCreateCollection switches the manager to the named collection.
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, m.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// Upsert stores document under id, replacing any entry with the same id.
func (m *VectorDBManager) Upsert(ctx context.Context, id, document string, metadata map[string]string) error {
	doc := chromem.Document{
		ID:       id,
		Content:  document,
		Metadata: metadata,
	}
	if err := m.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

// QueryNearest returns up to k entries ordered by ascending squared L2
// distance. chromem stores unit vectors, so that is 2*(1-cosine similarity).
func (m *VectorDBManager) QueryNearest(ctx context.Context, document string, k int) ([]models.Neighbor, error) {
	n := m.collection.Count()
	if n == 0 || k <= 0 {
		return nil, nil
	}
	// chromem rejects nResults above the collection size
	if k > n {
		k = n
	}

	results, err := m.collection.Query(ctx, document, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	neighbors := make([]models.Neighbor, 0, len(results))
	for _, r := range results {
		neighbors = append(neighbors, models.Neighbor{
			ID:       r.ID,
			Document: r.Content,
			Metadata: r.Metadata,
			Distance: 2 * (1 - float64(r.Similarity)),
		})
	}
	return neighbors, nil
}

// Get returns the stored entry with the given id.
func (m *VectorDBManager) Get(ctx context.Context, id string) (*models.IndexEntry, error) {
	doc, err := m.collection.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrEntryNotFound, id)
	}
	return &models.IndexEntry{
		ID:        doc.ID,
		Embedding: doc.Embedding,
		Document:  doc.Content,
		Metadata:  doc.Metadata,
	}, nil
}

func (m *VectorDBManager) Count(_ context.Context) (int, error) {
	return m.collection.Count(), nil
}

// Close is a no-op; chromem writes every document as it is added.
func (m *VectorDBManager) Close() error {
	return nil
}

// Export writes the collection to a single backup file. A non-empty
// encryptionKey must be 32 bytes long.
func (m *VectorDBManager) Export(filePath, encryptionKey string) error {
	if filePath == "" {
		return errors.New("export file path is required")
	}
	if filepath.Ext(filePath) == "" {
		filePath += ".gob"
	}

	log.Debug().
		Str("collection", m.collection.Name).
		Str("file", filePath).
		Bool("compress", m.compress).
		Bool("encrypted", encryptionKey != "").
		Msg("Exporting collection")

	if err := m.db.ExportToFile(filePath, m.compress, encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads the collection from a backup written by Export.
func (m *VectorDBManager) Import(filePath, encryptionKey string) error {
	name := m.collection.Name
	if err := m.db.ImportFromFile(filePath, encryptionKey, name); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	// the import replaces the collection object and drops its embedding func
	c := m.db.GetCollection(name, m.embed)
	if c == nil {
		return fmt.Errorf("collection %s not found in %s", name, filePath)
	}
	m.collection = c
	return nil
}
