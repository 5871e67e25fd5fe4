package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"ragbot/internal/models"
)

// Retriever is the read side of the vector index
type Retriever interface {
	State(ctx context.Context) (models.IndexState, error)
	Search(ctx context.Context, embedding []float32, k int) ([]models.Chunk, error)
}

// Generator produces the answer text for a fully built prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type RAG struct {
	index    Retriever
	embedder embeddings.Embedder
	llm      Generator
	topK     int
}

// NewRAG wires the answer pipeline. embedder must be the one used when the
// documents were ingested.
func NewRAG(index Retriever, embedder embeddings.Embedder, llm Generator, topK int) *RAG {
	if topK <= 0 {
		topK = 6
	}
	return &RAG{index: index, embedder: embedder, llm: llm, topK: topK}
}

// Answer answers question from the indexed documents only.
func (r *RAG) Answer(ctx context.Context, question string) (models.AnswerResult, error) {
	query := strings.TrimSpace(question)
	if query == "" {
		return models.AnswerResult{}, models.ErrInvalidQuestion
	}

	state, err := r.index.State(ctx)
	if err != nil {
		return models.AnswerResult{}, err
	}
	switch state {
	case models.IndexMissing:
		return models.AnswerResult{}, models.ErrNoDocuments
	case models.IndexEmpty:
		return models.AnswerResult{}, models.ErrEmptyKnowledgeBase
	case models.IndexReady:
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return models.AnswerResult{}, fmt.Errorf("failed to embed question: %w", err)
	}

	chunks, err := r.index.Search(ctx, queryEmbedding, r.topK)
	if err != nil {
		return models.AnswerResult{}, fmt.Errorf("failed to retrieve context: %w", err)
	}
	log.Debug().Str("query", query).Int("chunks", len(chunks)).Msg("Retrieved context")

	answer, err := r.llm.Generate(ctx, BuildPrompt(query, chunks))
	if err != nil {
		return models.AnswerResult{}, fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}

	return models.AnswerResult{
		Query:   query,
		Answer:  answer,
		Sources: Sources(chunks),
	}, nil
}

// BuildPrompt joins the chunk contents in retrieval order and embeds them,
// together with the question, in the answer template
func BuildPrompt(question string, chunks []models.Chunk) string {
	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}
	return fmt.Sprintf(models.AnswerPromptTemplate, strings.Join(contents, models.ContextSeparator), question)
}

// Sources returns the distinct chunk sources, sorted
func Sources(chunks []models.Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	sources := []string{}
	for _, c := range chunks {
		if _, ok := seen[c.Source]; ok || c.Source == "" {
			continue
		}
		seen[c.Source] = struct{}{}
		sources = append(sources, c.Source)
	}
	sort.Strings(sources)
	return sources
}
