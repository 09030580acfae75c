// Command ingest categorizes and indexes one statement CSV, either from the
// local filesystem or from a GCS bucket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/finleyapp/finance-advisor/internal/categorize"
	"github.com/finleyapp/finance-advisor/internal/config"
	"github.com/finleyapp/finance-advisor/internal/embed"
	"github.com/finleyapp/finance-advisor/internal/ingest"
	"github.com/finleyapp/finance-advisor/internal/logger"
	"github.com/finleyapp/finance-advisor/internal/profile"
	"github.com/finleyapp/finance-advisor/internal/source"
	"github.com/finleyapp/finance-advisor/internal/vector/qdrant"
)

func main() {
	var (
		file   = flag.String("file", "", "path to a local statement CSV")
		bucket = flag.String("bucket", "", "GCS bucket holding the statement")
		object = flag.String("object", "", "GCS object name of the statement")
		fileID = flag.String("file-id", "", "stable file id (defaults to a new UUID)")
	)
	flag.Parse()

	log := logger.New()
	cfg := config.FromEnv()

	if *file == "" && (*bucket == "" || *object == "") {
		log.Fatal().Msg("either -file or -bucket and -object are required")
	}
	if cfg.QdrantURL == "" {
		log.Fatal().Msg("QDRANT_URL is required: one-shot ingestion needs a persistent index")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	categories, err := config.LoadCategories(cfg.CategoriesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load categories")
	}

	profiles, err := profile.Open(cfg.ProfileDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open profile store")
	}
	defer profiles.Close()

	embedder, err := embed.NewGemini(ctx, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create embedder")
	}

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection, embedder.Dimension())
	if err := index.EnsureCollection(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare qdrant collection")
	}

	var (
		records  []source.Record
		filename string
	)
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open statement")
		}
		records, err = source.ReadCSV(f)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to parse statement")
		}
		filename = filepath.Base(*file)
	} else {
		records, err = source.FetchGCS(ctx, *bucket, *object)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to fetch statement from GCS")
		}
		filename = filepath.Base(*object)
	}

	id := *fileID
	if id == "" {
		id = uuid.New().String()
	}

	svc := ingest.NewService(categorize.New(categories), embedder, index, profiles, log)
	report, err := svc.IngestRecords(ctx, id, filename, records)
	if err != nil {
		log.Fatal().Err(err).Msg("ingestion failed")
	}

	fmt.Printf("file %s: indexed %d of %d transactions\n", id, report.Indexed, len(records))
	for _, item := range report.Failed {
		fmt.Printf("  failed %q: %s\n", item.Description, item.Message)
	}
	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}
