// Command ragcli ingests and queries course material from the terminal,
// against the same config and index as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"course-rag/internal/chromemdb"
	"course-rag/internal/config"
	"course-rag/internal/db"
	"course-rag/internal/embedding"
	"course-rag/internal/helper"
	"course-rag/internal/index"
	"course-rag/internal/llmservice"
	"course-rag/internal/rag"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	subject := flag.String("subject", "", "Subject namespace")
	filePath := flag.String("file", "", "Path to a material file to ingest")
	query := flag.String("query", "", "Question to ask against the subject")
	listSubjects := flag.Bool("subjects", false, "List known subjects")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()
	svc, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error wiring service")
	}
	defer cleanup()

	switch {
	case *listSubjects:
		names, err := svc.Subjects(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Error listing subjects")
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case *filePath != "":
		if *subject == "" {
			log.Fatal().Msg("-subject is required with -file")
		}
		data, err := os.ReadFile(*filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error reading file")
		}
		report, err := svc.ProcessMaterial(ctx, *subject, filepath.Base(*filePath), data)
		if err != nil {
			log.Fatal().Err(err).Msg("Error processing material")
		}
		color.Green("Ingested %d chunks into %s", report.ChunksIndexed, report.Subject)
		helper.PrettyPrint(report)
	case *query != "":
		if *subject == "" {
			log.Fatal().Msg("-subject is required with -query")
		}
		answer, err := svc.AskQuestion(ctx, *subject, *query)
		if err != nil {
			log.Fatal().Err(err).Msg("Error answering question")
		}
		color.Cyan("Question: %s", *query)
		color.Green("Answer:")
		fmt.Printf("%s\n\n", answer.Text)
		if len(answer.Citations) > 0 {
			color.Yellow("Sources:")
			for _, cit := range answer.Citations {
				fmt.Printf("  %s p.%d #%d (score %.3f)\n", cit.Source, cit.Page, cit.Ordinal, cit.Score)
			}
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func buildService(ctx context.Context, cfg *config.Config) (*rag.Service, func(), error) {
	idx, cleanup, err := buildIndex(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	embedder, err := embedding.NewEmbedder(&cfg.Embedder)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	synth, err := llmservice.New(&cfg.LLM)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return rag.NewService(cfg, embedder, synth, idx), cleanup, nil
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
