package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/finleyapp/finance-advisor/internal/advisor"
	"github.com/finleyapp/finance-advisor/internal/answer"
	"github.com/finleyapp/finance-advisor/internal/api"
	"github.com/finleyapp/finance-advisor/internal/categorize"
	"github.com/finleyapp/finance-advisor/internal/config"
	"github.com/finleyapp/finance-advisor/internal/embed"
	"github.com/finleyapp/finance-advisor/internal/ingest"
	"github.com/finleyapp/finance-advisor/internal/jobs"
	"github.com/finleyapp/finance-advisor/internal/jobs/inmemory"
	"github.com/finleyapp/finance-advisor/internal/logger"
	"github.com/finleyapp/finance-advisor/internal/profile"
	"github.com/finleyapp/finance-advisor/internal/retrieve"
	"github.com/finleyapp/finance-advisor/internal/source"
	"github.com/finleyapp/finance-advisor/internal/vector"
	"github.com/finleyapp/finance-advisor/internal/vector/qdrant"
)

func main() {
	cfg := config.FromEnv()
	port := flag.String("port", cfg.Port, "HTTP server port")
	flag.Parse()

	log := logger.New()
	ctx := context.Background()

	categories, err := config.LoadCategories(cfg.CategoriesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load categories")
	}
	categorizer := categorize.New(categories)

	profiles, err := profile.Open(cfg.ProfileDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open profile store")
	}
	defer profiles.Close()

	embedder, err := embed.NewGemini(ctx, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create embedder")
	}

	var index vector.Index
	if cfg.QdrantURL != "" {
		client := qdrant.New(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection, embedder.Dimension())
		if err := client.EnsureCollection(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare qdrant collection")
		}
		index = client
		log.Info().Str("url", cfg.QdrantURL).Str("collection", cfg.QdrantCollection).Msg("using qdrant index")
	} else {
		index = vector.NewMemory()
		log.Warn().Msg("QDRANT_URL not set, using in-memory index (data is lost on restart)")
	}

	completer, err := answer.NewGeminiCompleter(ctx, cfg.CompletionModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create completer")
	}

	engine := &advisor.Engine{
		Retriever: retrieve.New(embedder, index, categorizer),
		Profiles:  profiles,
		Context:   answer.NewContextBuilder(),
		Generator: answer.NewGenerator(completer, log),
		Log:       log,
	}

	ingestSvc := ingest.NewService(categorizer, embedder, index, profiles, log)

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		fileJob, ok := job.(*jobs.IngestFileJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}
		return runIngestJob(ctx, ingestSvc, fileJob, log)
	}

	go func() {
		log.Info().Msg("starting ingestion worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("ingestion worker stopped with error")
		}
	}()

	handler := &api.Handler{
		Engine:     engine,
		Profiles:   profiles,
		Index:      index,
		Publisher:  jobQueue,
		JobStore:   jobStore,
		Categories: categories,
		Log:        log,
	}

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("job queue shutdown failed")
	}
	log.Info().Msg("server exited")
}

// runIngestJob resolves the job's source, ingests its records and writes the
// outcome back onto the job for status polling.
func runIngestJob(ctx context.Context, svc *ingest.Service, job *jobs.IngestFileJob, log zerolog.Logger) error {
	var (
		records []source.Record
		err     error
	)
	switch {
	case job.LocalPath != "":
		var f *os.File
		f, err = os.Open(job.LocalPath)
		if err != nil {
			return fmt.Errorf("open upload: %w", err)
		}
		records, err = source.ReadCSV(f)
		f.Close()
	case job.GCSBucket != "" && job.GCSObject != "":
		records, err = source.FetchGCS(ctx, job.GCSBucket, job.GCSObject)
	default:
		return fmt.Errorf("job %s has no source", job.JobID)
	}
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	report, err := svc.IngestRecords(ctx, job.FileID, job.Filename, records)
	job.Indexed = report.Indexed
	job.ItemFailures = len(report.Failed)
	if err != nil {
		return err
	}

	if job.LocalPath != "" {
		if rmErr := os.Remove(job.LocalPath); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", job.LocalPath).Msg("upload file not removed")
		}
	}
	return nil
}
