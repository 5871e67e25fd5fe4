package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"ragbot/internal/chromemdb"
	"ragbot/internal/chunker"
	"ragbot/internal/config"
	"ragbot/internal/db"
	"ragbot/internal/embedding"
	"ragbot/internal/helper"
	"ragbot/internal/ingest"
	"ragbot/internal/llmservice"
	"ragbot/internal/models"
	"ragbot/internal/ocr"
	"ragbot/internal/parser"
	"ragbot/internal/rag"
	"ragbot/internal/raster"
	"ragbot/internal/uploads"
	"ragbot/internal/vectorindex"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	ingestFiles := flag.Bool("ingest", false, "Ingest the files given as arguments")
	list := flag.Bool("list", false, "List the ingested documents")
	deleteFile := flag.String("delete", "", "Delete an ingested document and its stored file")
	query := flag.String("query", "", "Question to be answered from the ingested documents")
	export := flag.Bool("export", false, "Export the chromem collection to an encrypted backup")
	importBackup := flag.Bool("import", false, "Import the chromem collection from an encrypted backup")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(&cfg.Log)

	ctx := context.Background()
	a, err := newApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing")
	}
	defer a.close()

	switch {
	case *ingestFiles:
		a.ingestFiles(ctx, flag.Args())
	case *list:
		a.listDocuments(ctx)
	case *deleteFile != "":
		a.deleteDocument(ctx, *deleteFile)
	case *query != "":
		a.performRAG(ctx, *query)
	case *export || *importBackup:
		a.backup(ctx, *export)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func setupLogger(cfg *config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("Unknown log level, using debug")
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
	}
}

// app holds every collaborator, built once per process
type app struct {
	cfg      *config.Config
	area     *uploads.Area
	store    vectorindex.Store
	embedder embeddings.Embedder
	index    *vectorindex.Manager
	ingest   *ingest.Service
	closers  []func() error
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	area, err := uploads.NewArea(cfg.Storage.UploadDir)
	if err != nil {
		return nil, err
	}
	a.area = area

	if err := a.openStore(); err != nil {
		a.close()
		return nil, err
	}

	a.embedder, err = embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	a.index = vectorindex.NewManager(a.store, a.embedder, area)

	extractor := parser.NewExtractor(a.extractorOptions()...)
	a.ingest = ingest.NewService(area, extractor, chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap), a.index)
	return a, nil
}

func (a *app) openStore() error {
	switch a.cfg.Storage.Backend {
	case config.BackendChromem:
		if !a.cfg.Storage.InMemory {
			if err := helper.CreateFolder(a.cfg.Storage.VectorDir); err != nil {
				return err
			}
		}
		store, err := chromemdb.NewVectorDBManager(
			a.cfg.Storage.VectorDir,
			a.cfg.Storage.Collection,
			a.cfg.Storage.InMemory,
			a.cfg.Storage.Compress,
			a.cfg.Storage.EncryptionKey,
		)
		if err != nil {
			return fmt.Errorf("failed to open vector database: %w", err)
		}
		a.store = store
	case config.BackendPostgres:
		sqldb, err := db.ConnectDB(&a.cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		store := db.NewPGVectorStore(db.NewDB(sqldb, a.cfg.Database.Debug))
		a.closers = append(a.closers, store.Close)
		a.store = store
	default:
		return fmt.Errorf("unknown storage backend: %s", a.cfg.Storage.Backend)
	}
	log.Debug().Str("backend", a.cfg.Storage.Backend).Msg("Opened vector store")
	return nil
}

// extractorOptions enables OCR only when tesseract starts with its language
// data; without it images and scanned PDFs are reported as OCR unavailable
func (a *app) extractorOptions() []parser.Option {
	opts := []parser.Option{
		parser.WithLowTextThreshold(a.cfg.RAG.LowTextThreshold),
		parser.WithDPI(a.cfg.RAG.OCRDPI),
	}
	if !a.cfg.OCR.Enabled {
		log.Info().Msg("OCR disabled")
		return opts
	}
	engine, err := ocr.NewTesseract(a.cfg.OCR.Languages...)
	if err != nil {
		log.Warn().Err(err).Msg("OCR engine unavailable, continuing without OCR")
		return opts
	}
	a.closers = append(a.closers, engine.Close)
	return append(opts, parser.WithOCR(engine), parser.WithRasterizer(raster.Fitz{}))
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Error closing resource")
		}
	}
}

func (a *app) ingestFiles(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		log.Fatal().Msg("Please provide at least one file to ingest")
	}

	batch := make([]models.Upload, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Error reading file")
		}
		batch = append(batch, models.Upload{Filename: filepath.Base(path), Data: data})
	}

	result, err := a.ingest.Ingest(ctx, batch)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting files")
	}
	helper.PrettyPrint(result)
}

func (a *app) listDocuments(ctx context.Context) {
	docs, err := a.index.ListDocuments(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing documents")
	}
	helper.PrettyPrint(map[string]any{"documents": docs})
}

func (a *app) deleteDocument(ctx context.Context, filename string) {
	err := a.index.DeleteDocument(ctx, filename)
	if err != nil {
		log.Error().Err(err).Str("file", filename).Msg("Error deleting document")
	}
	helper.PrettyPrint(map[string]any{"deleted": err == nil, "file": filename})
}

func (a *app) performRAG(ctx context.Context, query string) {
	client, err := llmservice.NewClient(&a.cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing llm client")
	}

	pipeline := rag.NewRAG(a.index, a.embedder, client, a.cfg.RAG.TopK)
	response, err := pipeline.Answer(ctx, query)
	if err != nil {
		code := models.ErrorCode(err)
		if code == models.CodeServerError {
			log.Error().Err(err).Msg("Error querying")
		}
		helper.PrettyPrint(map[string]any{"error": err.Error(), "code": code})
		os.Exit(1)
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%v\n\n", response.Sources)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Answer)
}

func (a *app) backup(ctx context.Context, export bool) {
	store, ok := a.store.(*chromemdb.VectorDBManager)
	if !ok {
		log.Fatal().Str("backend", a.cfg.Storage.Backend).Msg("Backups are only supported by the chromem backend")
	}

	var err error
	if export {
		err = store.Export(ctx)
	} else {
		err = store.Import(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error running backup")
	}
	log.Info().Bool("export", export).Msg("Backup complete")
}
