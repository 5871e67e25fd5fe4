// Package ingest drives uploaded files through extraction, chunking and
// indexing.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"ragbot/internal/models"
)

type FileStore interface {
	Save(filename string, data []byte) (models.StoredFile, error)
}

type Extractor interface {
	Extract(ctx context.Context, file models.StoredFile) models.Extraction
}

type Splitter interface {
	Split(blocks []models.TextBlock) []models.Chunk
}

type Upserter interface {
	Upsert(ctx context.Context, chunks []models.Chunk) error
}

type Service struct {
	files     FileStore
	extractor Extractor
	splitter  Splitter
	index     Upserter
}

func NewService(files FileStore, extractor Extractor, splitter Splitter, index Upserter) *Service {
	return &Service{files: files, extractor: extractor, splitter: splitter, index: index}
}

// Ingest stores every upload, extracts and chunks it, then indexes all chunks
// of the batch at once. Files yielding no chunks are reported in Failed; they
// never abort the batch.
func (s *Service) Ingest(ctx context.Context, batch []models.Upload) (models.IngestionResult, error) {
	result := models.IngestionResult{Failed: []string{}}
	if len(batch) == 0 {
		return result, nil
	}

	var chunks []models.Chunk
	var processed int
	for _, upload := range batch {
		file, err := s.files.Save(upload.Filename, upload.Data)
		if err != nil {
			return models.IngestionResult{}, fmt.Errorf("%w: %w", models.ErrStore, err)
		}

		ex := s.extractor.Extract(ctx, file)
		fileChunks := s.splitter.Split(ex.Blocks)
		if len(fileChunks) == 0 {
			log.Warn().Err(ex.Err).
				Str("file", file.Filename).
				Str("status", ex.Status.String()).
				Msg("No text extracted, skipping file")
			result.Failed = append(result.Failed, file.Filename)
			continue
		}

		log.Info().Str("file", file.Filename).Int("chunks", len(fileChunks)).Msg("Chunked file")
		chunks = append(chunks, fileChunks...)
		processed++
	}

	if len(chunks) == 0 {
		log.Warn().Int("failed", len(result.Failed)).Msg("No chunks produced by batch")
		return result, nil
	}

	if err := s.index.Upsert(ctx, chunks); err != nil {
		if !errors.Is(err, models.ErrIngestion) {
			err = fmt.Errorf("%w: %w", models.ErrIngestion, err)
		}
		return models.IngestionResult{}, err
	}

	result.OK = true
	result.Processed = processed
	result.Chunks = len(chunks)
	log.Info().Int("processed", processed).Int("failed", len(result.Failed)).Int("chunks", len(chunks)).Msg("Ingested batch")
	return result, nil
}
