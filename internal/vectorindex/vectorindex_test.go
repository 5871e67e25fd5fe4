package vectorindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ragbot/internal/chromemdb"
	"ragbot/internal/embedding"
	"ragbot/internal/models"
	"ragbot/internal/uploads"
)

func newTestManager(t *testing.T) (*Manager, *uploads.Area) {
	t.Helper()
	store, err := chromemdb.NewVectorDBManager("", "rag_app", true, false, "")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	area, err := uploads.NewArea(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create uploads area: %v", err)
	}
	return NewManager(store, embedding.NewHashEmbedder(64), area), area
}

func chunksFor(source string, contents ...string) []models.Chunk {
	chunks := make([]models.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = models.Chunk{Content: c, Source: source, Index: i}
	}
	return chunks
}

func TestListDocumentsUninitialised(t *testing.T) {
	m, _ := newTestManager(t)
	docs, err := m.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", docs)
	}
	state, _ := m.State(context.Background())
	if state != models.IndexMissing {
		t.Fatalf("expected missing index, got %s", state)
	}
}

func TestUpsertListSearch(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	a := chunksFor("a.pdf", "invoice total amount due", "payment terms thirty days")
	b := chunksFor("/tmp/uploads/b.xlsx", "employee roster finance department")
	if err := m.Upsert(ctx, append(a, b...)); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	docs, err := m.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(docs, []string{"a.pdf", "b.xlsx"}) {
		t.Fatalf("unexpected documents %v", docs)
	}

	state, _ := m.State(ctx)
	if state != models.IndexReady {
		t.Fatalf("expected ready index, got %s", state)
	}

	q, _ := embedding.NewHashEmbedder(64).EmbedQuery(ctx, "employee roster finance department")
	results, err := m.Search(ctx, q, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected k clamped to 3 chunks, got %d", len(results))
	}
	if results[0].Source != "/tmp/uploads/b.xlsx" {
		t.Fatalf("expected roster chunk first, got %+v", results[0])
	}

	results, _ = m.Search(ctx, q, 1)
	if len(results) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(results))
	}
}

func TestUpsertAssignsDistinctIDsOnReingest(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first := chunksFor("a.pdf", "same content")
	second := chunksFor("a.pdf", "same content")
	if err := m.Upsert(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := m.Upsert(ctx, second); err != nil {
		t.Fatal(err)
	}
	if first[0].ID == "" || first[0].ID == second[0].ID {
		t.Fatalf("expected distinct ids, got %q and %q", first[0].ID, second[0].ID)
	}
	n, _ := m.store.Count(ctx)
	if n != 2 {
		t.Fatalf("expected duplicated chunks, got %d", n)
	}
	docs, _ := m.ListDocuments(ctx)
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %v", docs)
	}
}

func TestDeleteDocument(t *testing.T) {
	m, area := newTestManager(t)
	ctx := context.Background()

	if _, err := area.Save("a.pdf", []byte("%PDF")); err != nil {
		t.Fatal(err)
	}
	if err := m.Upsert(ctx, append(chunksFor("a.pdf", "alpha one", "alpha two"), chunksFor("b.pdf", "beta")...)); err != nil {
		t.Fatal(err)
	}

	if err := m.DeleteDocument(ctx, "a.pdf"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	docs, _ := m.ListDocuments(ctx)
	if !reflect.DeepEqual(docs, []string{"b.pdf"}) {
		t.Fatalf("unexpected documents after delete %v", docs)
	}
	if _, err := os.Stat(filepath.Join(area.Dir(), "a.pdf")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected stored file removed, got %v", err)
	}

	q, _ := embedding.NewHashEmbedder(64).EmbedQuery(ctx, "alpha one")
	results, _ := m.Search(ctx, q, 6)
	for _, r := range results {
		if r.Source == "a.pdf" {
			t.Fatalf("deleted chunk still searchable: %+v", r)
		}
	}

	if err := m.DeleteDocument(ctx, "never-uploaded.pdf"); err != nil {
		t.Fatalf("deleting an unknown document should succeed, got %v", err)
	}
}

func TestStateEmptyAfterDeletingLastDocument(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	if err := m.Upsert(ctx, chunksFor("only.txt", "lonely chunk")); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteDocument(ctx, "only.txt"); err != nil {
		t.Fatal(err)
	}
	state, _ := m.State(ctx)
	if state != models.IndexEmpty {
		t.Fatalf("expected empty index, got %s", state)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding service down")
}

func (failingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding service down")
}

func TestUpsertEmbeddingFailure(t *testing.T) {
	store, _ := chromemdb.NewVectorDBManager("", "rag_app", true, false, "")
	m := NewManager(store, failingEmbedder{}, nil)
	err := m.Upsert(context.Background(), chunksFor("a.pdf", "text"))
	if !errors.Is(err, models.ErrIngestion) {
		t.Fatalf("expected ErrIngestion, got %v", err)
	}
	if exists, _ := store.Exists(context.Background()); exists {
		t.Fatal("store should be untouched when embedding fails")
	}
}
