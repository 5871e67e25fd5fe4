package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendChromem  = "chromem"
	BackendPostgres = "postgres"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	RAG      RAGConfig      `yaml:"rag"`
	OCR      OCRConfig      `yaml:"ocr"`
	Log      LogConfig      `yaml:"log"`
}

type StorageConfig struct {
	UploadDir     string `yaml:"upload_dir"`
	VectorDir     string `yaml:"vector_dir"`
	Collection    string `yaml:"collection"`
	Backend       string `yaml:"backend"`
	InMemory      bool   `yaml:"in_memory"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
	Debug  bool   `yaml:"debug"`
}

type LLMConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Key       string `yaml:"key"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

type RAGConfig struct {
	ChunkSize        int `yaml:"chunk_size"`
	ChunkOverlap     int `yaml:"chunk_overlap"`
	TopK             int `yaml:"top_k"`
	LowTextThreshold int `yaml:"low_text_threshold"`
	OCRDPI           int `yaml:"ocr_dpi"`
}

type OCRConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Languages []string `yaml:"languages"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

const (
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 200
	DefaultTopK             = 6
	DefaultLowTextThreshold = 50
	DefaultOCRDPI           = 300
	DefaultCollection       = "rag_app"
	DefaultUploadDir        = "./uploaded_files"
	DefaultVectorDir        = "./chromemdb"
	DefaultHashDimension    = 384
)

// LoadConfig reads a yaml config from path. Variables from a .env file in the
// working directory are loaded first and ${VAR} references in the file are
// expanded. A missing config file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := unset()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config holding only default values
func Default() *Config {
	cfg := unset()
	applyDefaults(&cfg)
	return &cfg
}

// unset marks fields whose zero value is a valid setting, so applyDefaults
// only fills them when the file leaves them out
func unset() Config {
	return Config{RAG: RAGConfig{ChunkOverlap: -1}}
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = DefaultUploadDir
	}
	if cfg.Storage.VectorDir == "" {
		cfg.Storage.VectorDir = DefaultVectorDir
	}
	if cfg.Storage.Collection == "" {
		cfg.Storage.Collection = DefaultCollection
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendChromem
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = ProviderOllama
	}
	if cfg.EmbedLLM.Provider == ProviderHash && cfg.EmbedLLM.Dimension == 0 {
		cfg.EmbedLLM.Dimension = DefaultHashDimension
	}
	if cfg.ChatLLM.Provider == "" {
		cfg.ChatLLM.Provider = ProviderOpenAI
	}
	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = DefaultChunkSize
	}
	if cfg.RAG.ChunkOverlap < 0 {
		cfg.RAG.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = DefaultTopK
	}
	if cfg.RAG.LowTextThreshold <= 0 {
		cfg.RAG.LowTextThreshold = DefaultLowTextThreshold
	}
	if cfg.RAG.OCRDPI <= 0 {
		cfg.RAG.OCRDPI = DefaultOCRDPI
	}
	if len(cfg.OCR.Languages) == 0 {
		cfg.OCR.Languages = []string{"eng"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
}
