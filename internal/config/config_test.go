package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RAG.ChunkSize != DefaultChunkSize || cfg.RAG.ChunkOverlap != DefaultChunkOverlap {
		t.Fatalf("unexpected chunk defaults: %+v", cfg.RAG)
	}
	if cfg.RAG.TopK != 6 || cfg.RAG.LowTextThreshold != 50 || cfg.RAG.OCRDPI != 300 {
		t.Fatalf("unexpected rag defaults: %+v", cfg.RAG)
	}
	if cfg.Storage.Collection != "rag_app" || cfg.Storage.Backend != BackendChromem {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("RAGBOT_TEST_KEY", "secret-key")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chat_llm:
  provider: openai
  base_url: https://api.groq.com/openai/v1
  key: ${RAGBOT_TEST_KEY}
  model: llama-3.3-70b-versatile
rag:
  chunk_size: 500
  top_k: 3
embed_llm:
  provider: hash
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChatLLM.Key != "secret-key" {
		t.Fatalf("expected expanded key, got %q", cfg.ChatLLM.Key)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.TopK != 3 {
		t.Fatalf("file values not applied: %+v", cfg.RAG)
	}
	if cfg.RAG.ChunkOverlap != DefaultChunkOverlap {
		t.Fatalf("expected default overlap, got %d", cfg.RAG.ChunkOverlap)
	}
	if cfg.EmbedLLM.Dimension != DefaultHashDimension {
		t.Fatalf("expected hash dimension default, got %d", cfg.EmbedLLM.Dimension)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("rag: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExampleConfigLoads(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Backend != BackendChromem || cfg.EmbedLLM.Provider != ProviderOllama {
		t.Fatalf("unexpected example config: %+v", cfg)
	}
	if cfg.ChatLLM.Key != "sk-test" || !cfg.OCR.Enabled {
		t.Fatalf("unexpected example config: %+v", cfg)
	}
}

func TestLoadConfigKeepsZeroOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("rag:\n  chunk_overlap: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RAG.ChunkOverlap != 0 {
		t.Fatalf("expected configured overlap 0, got %d", cfg.RAG.ChunkOverlap)
	}
	if Default().RAG.ChunkOverlap != DefaultChunkOverlap {
		t.Fatalf("expected default overlap, got %d", Default().RAG.ChunkOverlap)
	}
}
