package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"ragbot/internal/config"
	"ragbot/internal/models"
)

const (
	DriverPGDriver = "pgdriver"
	DriverPQ       = "postgres"
	DriverPGX      = "pgx"

	tableName = "rag_chunks"
)

type Document struct {
	bun.BaseModel `bun:"table:rag_chunks,alias:d"`
	ID            string          `bun:"id,pk"`
	Content       string          `bun:"content,notnull"`
	Source        string          `bun:"source,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Distance      float32         `bun:"distance,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a connection pool with the configured driver
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	switch cfg.Driver {
	case DriverPGDriver, "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
	case DriverPQ, "pq":
		return sql.Open("postgres", cfg.DSN)
	case DriverPGX:
		return sql.Open("pgx", cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

// PGVectorStore keeps chunks in a pgvector table. The table is created on the
// first write, so a fresh database reports that the index does not exist.
type PGVectorStore struct {
	db *bun.DB

	mu      sync.Mutex
	created bool
}

func NewPGVectorStore(db *bun.DB) *PGVectorStore {
	return &PGVectorStore{db: db}
}

func (s *PGVectorStore) Close() error {
	return s.db.Close()
}

func (s *PGVectorStore) Exists(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.db.NewRaw("SELECT to_regclass(?) IS NOT NULL", tableName).Scan(ctx, &exists); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", tableName, err)
	}
	return exists, nil
}

func (s *PGVectorStore) initDB(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	s.created = true
	log.Debug().Str("table", tableName).Msg("Initialized vector table")
	return nil
}

func (s *PGVectorStore) Add(ctx context.Context, chunks []models.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.initDB(ctx); err != nil {
		return err
	}

	docs := make([]Document, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		docs[i] = Document{
			ID:        c.ID,
			Content:   c.Content,
			Source:    c.Source,
			Embedding: pgvector.NewVector(c.Embedding),
		}
	}
	if _, err := s.db.NewInsert().Model(&docs).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}
	return nil
}

func (s *PGVectorStore) All(ctx context.Context) ([]models.IndexedChunk, error) {
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}
	var docs []Document
	if err := s.db.NewSelect().Model(&docs).Column("id", "source").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	chunks := make([]models.IndexedChunk, len(docs))
	for i, d := range docs {
		chunks[i] = models.IndexedChunk{ID: d.ID, Source: d.Source}
	}
	return chunks, nil
}

func (s *PGVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return err
	}
	if _, err := s.db.NewDelete().Model((*Document)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// Query orders by cosine distance, closest first
func (s *PGVectorStore) Query(ctx context.Context, embedding []float32, k int) ([]models.IndexedChunk, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	if k <= 0 {
		return nil, nil
	}
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}

	vec := pgvector.NewVector(embedding)
	var docs []Document
	err = s.db.NewSelect().
		Model(&docs).
		Column("id", "content", "source").
		ColumnExpr("embedding <=> ? AS distance", vec).
		OrderExpr("embedding <=> ?", vec).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	chunks := make([]models.IndexedChunk, len(docs))
	for i, d := range docs {
		chunks[i] = models.IndexedChunk{
			ID:         d.ID,
			Content:    d.Content,
			Source:     d.Source,
			Similarity: 1 - d.Distance,
		}
	}
	return chunks, nil
}

func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return 0, err
	}
	n, err := s.db.NewSelect().Model((*Document)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// DropDocuments removes the table, returning the store to its missing state
func (s *PGVectorStore) DropDocuments(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	s.created = false
	return nil
}
