// Package vectorindex manages the chunks of every ingested document in a
// vector engine: embedding and storing them, listing and deleting them by
// source document, and similarity search.
package vectorindex

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"ragbot/internal/helper"
	"ragbot/internal/models"
	"ragbot/internal/uploads"
)

const DefaultTopK = 6

// Store is a vector engine persisting IndexedChunks.
type Store interface {
	// Exists reports whether the underlying collection was ever created
	Exists(ctx context.Context) (bool, error)
	Add(ctx context.Context, chunks []models.IndexedChunk) error
	// All lists every chunk with at least its ID and source
	All(ctx context.Context) ([]models.IndexedChunk, error)
	Delete(ctx context.Context, ids []string) error
	Query(ctx context.Context, embedding []float32, k int) ([]models.IndexedChunk, error)
	Count(ctx context.Context) (int, error)
}

type Manager struct {
	mu       sync.Mutex
	store    Store
	embedder embeddings.Embedder
	uploads  *uploads.Area
}

// NewManager builds a manager; area may be nil when stored files are kept
// elsewhere.
func NewManager(store Store, embedder embeddings.Embedder, area *uploads.Area) *Manager {
	return &Manager{store: store, embedder: embedder, uploads: area}
}

// Upsert embeds chunks in one batch and stores them under fresh IDs.
// Re-ingesting a file adds a second set of chunks.
func (m *Manager) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := m.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: failed to embed chunks: %w", models.ErrIngestion, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d chunks", models.ErrIngestion, len(vectors), len(chunks))
	}

	indexed := make([]models.IndexedChunk, len(chunks))
	for i, c := range chunks {
		id, err := helper.GenerateUUID()
		if err != nil {
			return fmt.Errorf("%w: %w", models.ErrIngestion, err)
		}
		chunks[i].ID = id
		indexed[i] = models.IndexedChunk{
			ID:        id,
			Content:   c.Content,
			Source:    c.Source,
			Embedding: vectors[i],
		}
	}

	if err := m.store.Add(ctx, indexed); err != nil {
		return fmt.Errorf("%w: failed to store chunks: %w", models.ErrIngestion, err)
	}
	log.Info().Int("chunks", len(indexed)).Msg("Upserted chunks")
	return nil
}

// ListDocuments returns the distinct source filenames in the index, sorted.
// An uninitialised index has no documents.
func (m *Manager) ListDocuments(ctx context.Context) ([]string, error) {
	all, err := m.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStore, err)
	}

	seen := make(map[string]struct{})
	docs := []string{}
	for _, c := range all {
		if c.Source == "" {
			continue
		}
		name := filepath.Base(c.Source)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		docs = append(docs, name)
	}
	sort.Strings(docs)
	return docs, nil
}

// DeleteDocument removes every chunk whose source is filename, then the
// stored file itself. A document with no chunks is not an error.
func (m *Manager) DeleteDocument(ctx context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := filepath.Base(filename)
	all, err := m.store.All(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to list chunks: %w", models.ErrStore, err)
	}
	var ids []string
	for _, c := range all {
		if c.Source != "" && filepath.Base(c.Source) == target {
			ids = append(ids, c.ID)
		}
	}
	if err := m.store.Delete(ctx, ids); err != nil {
		return fmt.Errorf("%w: failed to delete chunks of %s: %w", models.ErrStore, target, err)
	}

	removed := false
	if m.uploads != nil {
		removed, err = m.uploads.Remove(target)
		if err != nil {
			return fmt.Errorf("%w: %w", models.ErrStore, err)
		}
	}
	log.Info().Str("file", target).Int("chunks", len(ids)).Bool("file_removed", removed).Msg("Deleted document")
	return nil
}

// Search returns at most k chunks closest to embedding, closest first.
// k <= 0 means DefaultTopK.
func (m *Manager) Search(ctx context.Context, embedding []float32, k int) ([]models.Chunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	results, err := m.store.Query(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStore, err)
	}
	chunks := make([]models.Chunk, len(results))
	for i, r := range results {
		chunks[i] = models.Chunk{ID: r.ID, Content: r.Content, Source: r.Source}
	}
	return chunks, nil
}

func (m *Manager) State(ctx context.Context) (models.IndexState, error) {
	exists, err := m.store.Exists(ctx)
	if err != nil {
		return models.IndexMissing, fmt.Errorf("%w: %w", models.ErrStore, err)
	}
	if !exists {
		return models.IndexMissing, nil
	}
	n, err := m.store.Count(ctx)
	if err != nil {
		return models.IndexMissing, fmt.Errorf("%w: %w", models.ErrStore, err)
	}
	if n == 0 {
		return models.IndexEmpty, nil
	}
	return models.IndexReady, nil
}
