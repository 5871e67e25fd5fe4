package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"ragbot/internal/models"
)

// VectorDBManager encapsulates the chromem-go database operations.
//
// chromem has no way to enumerate a collection without a query vector, so
// every chunk is also recorded in a ledger collection "<name>_sources" whose
// documents carry the same ID, the source metadata and a constant
// one-dimensional embedding. Querying the ledger with that embedding returns
// every chunk.
type VectorDBManager struct {
	mu            sync.Mutex
	db            *chromem.DB
	name          string
	collection    *chromem.Collection
	ledger        *chromem.Collection
	dbPath        string
	compress      bool
	encryptionKey string
	filePath      string
}

var (
	ledgerEmbedding = []float32{1}

	errEmbeddingRequired = errors.New("chromemdb: embeddings must be computed by the caller")
)

// NewVectorDBManager opens the database at dbPath, or an in-memory one.
// Collections are only created on the first write.
func NewVectorDBManager(dbPath, collectionName string, inMemory, compress bool, encryptionKey string) (*VectorDBManager, error) {
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
		db:            db,
		name:          collectionName,
		dbPath:        dbPath,
		compress:      compress,
		encryptionKey: encryptionKey,
		filePath:      filepath.Join(dbPath, collectionName+".chromem"),
	}
	m.collection = db.GetCollection(collectionName, noEmbedding)
	m.ledger = db.GetCollection(m.ledgerName(), noEmbedding)
	return m, nil
}

// noEmbedding stops chromem from falling back to its default OpenAI embedder
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errEmbeddingRequired
}

func (m *VectorDBManager) ledgerName() string {
	return m.name + "_sources"
}

// create or read collection
func (m *VectorDBManager) getOrCreateCollections() error {
	if m.collection != nil && m.ledger != nil {
		return nil
	}
	c, err := m.db.GetOrCreateCollection(m.name, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}
	l, err := m.db.GetOrCreateCollection(m.ledgerName(), nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection, m.ledger = c, l
	return nil
}

// Exists reports whether the collection has ever been created
func (m *VectorDBManager) Exists(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collection != nil, nil
}

// Count returns the number of stored chunks, 0 when the collection is missing
func (m *VectorDBManager) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collection == nil {
		return 0, nil
	}
	return m.collection.Count(), nil
}

// Add stores chunks with their precomputed embeddings
func (m *VectorDBManager) Add(ctx context.Context, chunks []models.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getOrCreateCollections(); err != nil {
		return err
	}

	docs := make([]chromem.Document, len(chunks))
	entries := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", chunk.ID)
		}
		metadata := map[string]string{models.MetadataSource: chunk.Source}
		docs[i] = chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Metadata:  metadata,
			Embedding: chunk.Embedding,
		}
		entries[i] = chromem.Document{
			ID:        chunk.ID,
			Metadata:  metadata,
			Embedding: ledgerEmbedding,
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	if err := m.ledger.AddDocuments(ctx, entries, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add ledger entries: %w", err)
	}
	return nil
}

// All returns every stored chunk with its ID and source, without content or
// embedding
func (m *VectorDBManager) All(ctx context.Context) ([]models.IndexedChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ledger == nil {
		return nil, nil
	}
	n := m.ledger.Count()
	if n == 0 {
		return nil, nil
	}

	results, err := m.ledger.QueryEmbedding(ctx, ledgerEmbedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	chunks := make([]models.IndexedChunk, len(results))
	for i, r := range results {
		chunks[i] = models.IndexedChunk{ID: r.ID, Source: r.Metadata[models.MetadataSource]}
	}
	return chunks, nil
}

// Delete removes chunks by ID
func (m *VectorDBManager) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collection == nil {
		return nil
	}
	if err := m.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	if err := m.ledger.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("failed to delete ledger entries: %w", err)
	}
	return nil
}

// Query performs a similarity search and returns at most k chunks, closest
// first
func (m *VectorDBManager) Query(ctx context.Context, embedding []float32, k int) ([]models.IndexedChunk, error) {
	// exit if embedding is not provided
	if len(embedding) == 0 {
		return nil, errors.New("query embedding must be provided")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collection == nil {
		return nil, nil
	}
	k = min(k, m.collection.Count())
	if k <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	chunks := make([]models.IndexedChunk, len(results))
	for i, r := range results {
		chunks[i] = models.IndexedChunk{
			ID:         r.ID,
			Content:    r.Content,
			Source:     r.Metadata[models.MetadataSource],
			Embedding:  r.Embedding,
			Similarity: r.Similarity,
		}
	}
	return chunks, nil
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collection == nil {
		return nil
	}
	if err := m.db.DeleteCollection(m.name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	if err := m.db.DeleteCollection(m.ledgerName()); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	m.collection, m.ledger = nil, nil
	return nil
}

// Export writes both collections to an encrypted backup file
func (m *VectorDBManager) Export(ctx context.Context) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}

	log.Debug().Str("collection", m.name).Str("file", m.filePath).Bool("compress", m.compress).Msg("Exporting collection")
	err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.name, m.ledgerName())
	if err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import restores both collections from a backup written by Export
func (m *VectorDBManager) Import(ctx context.Context) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.db.ImportFromFile(m.filePath, m.encryptionKey, m.name, m.ledgerName()); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	m.collection = m.db.GetCollection(m.name, noEmbedding)
	m.ledger = m.db.GetCollection(m.ledgerName(), noEmbedding)
	return nil
}
