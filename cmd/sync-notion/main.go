// Command sync-notion mirrors a statement CSV's categorized transactions
// into a Notion database for browsing and annotation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/finleyapp/finance-advisor/internal/categorize"
	"github.com/finleyapp/finance-advisor/internal/config"
	"github.com/finleyapp/finance-advisor/internal/domain"
	"github.com/finleyapp/finance-advisor/internal/export/notion"
	"github.com/finleyapp/finance-advisor/internal/ingest"
	"github.com/finleyapp/finance-advisor/internal/logger"
	"github.com/finleyapp/finance-advisor/internal/source"
)

func main() {
	var (
		file   = flag.String("file", "", "path to the statement CSV to sync")
		dryRun = flag.Bool("dry-run", false, "log what would change without writing to Notion")
	)
	flag.Parse()

	log := logger.New()
	cfg := config.FromEnv()

	if *file == "" {
		log.Fatal().Msg("-file is required")
	}
	if cfg.NotionToken == "" || cfg.NotionDatabase == "" {
		log.Fatal().Msg("NOTION_TOKEN and NOTION_DATABASE_ID are required")
	}

	categories, err := config.LoadCategories(cfg.CategoriesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load categories")
	}
	categorizer := categorize.New(categories)

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open statement")
	}
	records, err := source.ReadCSV(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse statement")
	}

	fileID := filepath.Base(*file)
	svc := &ingest.Service{Categorizer: categorizer}
	txs := make([]domain.Transaction, len(records))
	for i, rec := range records {
		txs[i] = svc.Categorize(fileID, rec)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	syncer := &notion.Syncer{
		Writer:     notion.NewClient(cfg.NotionToken),
		DatabaseID: cfg.NotionDatabase,
		DryRun:     *dryRun,
		Log:        log,
	}
	res, err := syncer.Sync(ctx, txs)
	if err != nil {
		log.Fatal().Err(err).Msg("sync failed")
	}

	fmt.Printf("created %d, skipped %d, archived %d\n", res.Created, res.Skipped, res.Deleted)
}
