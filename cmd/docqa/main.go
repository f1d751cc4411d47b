package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docqa/internal/api"
	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/embedding/openai"
	"docqa/internal/embedding/tfidf"
	"docqa/internal/index"
	"docqa/internal/llm"
	"docqa/internal/logging"
	"docqa/internal/query"
	"docqa/internal/tui"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
	"docqa/internal/vectorstore/sqlite"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		docsDir string
		serve   bool
		rebuild bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docqa/config.yaml if not provided)")
	flag.StringVar(&docsDir, "docs", "", "Markdown corpus directory (overrides docs_dir)")
	flag.BoolVar(&serve, "serve", false, "Serve the HTTP API instead of the terminal UI")
	flag.BoolVar(&rebuild, "rebuild", false, "Rebuild the index even if a persisted one exists")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if docsDir != "" {
		cfg.DocsDir = docsDir
	}
	if rebuild {
		cfg.Storage.Rebuild = true
	}

	logFile := cfg.Log.File
	if !serve && logFile == "" {
		// Keep log lines out of the terminal UI.
		logFile = filepath.Join(cfg.Storage.PersistDir, "docqa.log")
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, logFile)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, serve, logger); err != nil {
		logger.Error("docqa failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, serve bool, logger *zap.Logger) error {
	emb, batchSize, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	store, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}
	idx, err := index.New(
		chunker.NewMarkdownChunker(),
		chunker.NewWindower(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap),
		emb, store,
		index.WithLogger(logger.Named("index")),
		index.WithBatchSize(batchSize),
		index.WithCollection(cfg.Storage.Collection),
	)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer idx.Close()

	stats, err := openIndex(ctx, cfg, idx, logger)
	if err != nil {
		return err
	}

	completer, err := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		Model:       cfg.LLM.Model,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return fmt.Errorf("llm init failed: %w", err)
	}
	retriever, err := query.NewRetriever(idx, cfg.Retrieval.TopK)
	if err != nil {
		return err
	}
	pipeline := query.NewPipeline(
		retriever,
		query.NewValidator(completer),
		query.NewGenerator(completer, cfg.Generation.ContextTokens),
		query.WithLogger(logger.Named("query")),
	)

	if serve {
		return serveHTTP(ctx, cfg, pipeline, idx, logger)
	}
	subtitle := fmt.Sprintf("%d documents, %d sections, %d nodes  model=%s", stats.Documents, stats.Sections, stats.Nodes, cfg.LLM.Model)
	_, err = tea.NewProgram(tui.New(ctx, pipeline, subtitle, idx.Overview()), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func newEmbedder(cfg *config.AppConfig) (embedding.Embedder, int, error) {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), 1, nil
	case "openai":
		oc := cfg.Embedder.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, oc.BatchSize, nil
	default:
		return nil, 0, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func newStorage(ctx context.Context, cfg *config.AppConfig) (vectorstore.Storage, error) {
	switch cfg.VectorStore.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "sqlite":
		return sqlite.Open(ctx, cfg.Storage.PersistDir, cfg.Storage.Collection)
	case "qdrant":
		qc := cfg.VectorStore.Qdrant
		return qdrant.NewStorage(qdrant.Config{
			URL:        qc.URL,
			APIKey:     qc.APIKey,
			Collection: cfg.Storage.Collection,
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

// openIndex reuses a persisted index unless a rebuild is requested or there
// is nothing stored yet.
func openIndex(ctx context.Context, cfg *config.AppConfig, idx *index.Indexer, logger *zap.Logger) (index.Stats, error) {
	if cfg.VectorStore.Type != "memory" && !cfg.Storage.Rebuild {
		stats, err := idx.Load(ctx)
		if err == nil {
			return stats, nil
		}
		if !errors.Is(err, index.ErrEmptyIndex) {
			logger.Warn("persisted index unusable, rebuilding", zap.Error(err))
		}
	}
	logger.Info("building index", zap.String("docs_dir", cfg.DocsDir))
	stats, err := idx.BuildFromDir(ctx, cfg.DocsDir)
	if err != nil {
		return index.Stats{}, fmt.Errorf("index build failed: %w", err)
	}
	return stats, nil
}

func serveHTTP(ctx context.Context, cfg *config.AppConfig, pipeline *query.Pipeline, idx *index.Indexer, logger *zap.Logger) error {
	srv := api.NewServer(pipeline, idx, cfg.Server.Addr, logger.Named("api"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down server")
		return srv.Stop(shutdownCtx)
	}
}
