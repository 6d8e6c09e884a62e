package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"course-rag/internal/api"
	"course-rag/internal/chromemdb"
	"course-rag/internal/config"
	"course-rag/internal/db"
	"course-rag/internal/embedding"
	"course-rag/internal/index"
	"course-rag/internal/llmservice"
	"course-rag/internal/rag"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx, cleanup, err := buildIndex(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing vector index")
	}
	defer cleanup()

	embedder, err := embedding.NewEmbedder(&cfg.Embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	synth, err := llmservice.New(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing llm client")
	}
	svc := rag.NewService(cfg, embedder, synth, idx)

	srv := api.NewServer(&api.Options{
		Address:   cfg.Server.Address,
		BodyLimit: cfg.Server.BodyLimit,
		Debug:     cfg.Server.Debug,
		Svc:       svc,
	})

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Starting server")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
}

func buildIndex(ctx context.Context, cfg *config.Config) (index.Index, func(), error) {
	switch cfg.Index.Type {
	case "chromem":
		store, err := chromemdb.New(cfg.Index.Path, cfg.Index.Compress)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "pgvector":
		sqldb := db.ConnectDB(&cfg.Index)
		bunDB := db.NewDB(sqldb, cfg.Index.Debug)
		if err := db.InitDB(ctx, bunDB, cfg.Embedder.Dimension); err != nil {
			bunDB.Close()
			return nil, nil, err
		}
		return db.NewStore(bunDB), func() { bunDB.Close() }, nil
	default:
		return nil, nil, errors.New("unknown index type " + cfg.Index.Type)
	}
}
