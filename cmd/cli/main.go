// Command cli is an interactive terminal client: ingest statements, set the
// monthly income and chat with the advisor without running the HTTP server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finleyapp/finance-advisor/internal/advisor"
	"github.com/finleyapp/finance-advisor/internal/answer"
	"github.com/finleyapp/finance-advisor/internal/categorize"
	"github.com/finleyapp/finance-advisor/internal/config"
	"github.com/finleyapp/finance-advisor/internal/embed"
	"github.com/finleyapp/finance-advisor/internal/ingest"
	"github.com/finleyapp/finance-advisor/internal/logger"
	"github.com/finleyapp/finance-advisor/internal/profile"
	"github.com/finleyapp/finance-advisor/internal/retrieve"
	"github.com/finleyapp/finance-advisor/internal/source"
	"github.com/finleyapp/finance-advisor/internal/vector"
	"github.com/finleyapp/finance-advisor/internal/vector/qdrant"
)

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	answerColor = color.New(color.FgGreen)
	noteColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed)
)

type app struct {
	categorizer *categorize.Categorizer
	embedder    embed.Embedder
	index       vector.Index
	profiles    *profile.Store
	engine      *advisor.Engine
	ingester    *ingest.Service
}

func main() {
	flag.Parse()

	cfg := config.FromEnv()
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
	} else {
		noteColor.Println("QDRANT_URL not set: using an in-memory index for this session.")
		index = vector.NewMemory()
	}

	completer, err := answer.NewGeminiCompleter(ctx, cfg.CompletionModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create completer")
	}

	a := &app{
		categorizer: categorizer,
		embedder:    embedder,
		index:       index,
		profiles:    profiles,
		ingester:    ingest.NewService(categorizer, embedder, index, profiles, log),
		engine: &advisor.Engine{
			Retriever: retrieve.New(embedder, index, categorizer),
			Profiles:  profiles,
			Context:   answer.NewContextBuilder(),
			Generator: answer.NewGenerator(completer, log),
			Log:       log,
		},
	}

	a.repl(ctx)
}

func (a *app) repl(ctx context.Context) {
	fmt.Println("Finley — ask about your spending. Type /help for commands.")

	history := answer.NewHistory(answer.DefaultMaxHistoryTurns)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if a.command(ctx, line) {
				return
			}
			continue
		}

		askCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		ans, err := a.engine.Ask(askCtx, line, history)
		cancel()
		if err != nil {
			errColor.Printf("error: %v\n", err)
			continue
		}
		if ans.Degraded {
			noteColor.Println("(the assistant is unavailable, showing raw numbers)")
		}
		answerColor.Println(ans.Text)

		history.Add("user", line)
		history.Add("assistant", ans.Text)
	}
}

// command runs one slash command; returns true when the REPL should exit.
func (a *app) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println("  /ingest <file.csv>   categorize and index a statement CSV")
		fmt.Println("  /income <amount>     set your monthly income")
		fmt.Println("  /files               list ingested files")
		fmt.Println("  /quit                exit")
	case "/ingest":
		if len(fields) != 2 {
			errColor.Println("usage: /ingest <file.csv>")
			break
		}
		a.ingestFile(ctx, fields[1])
	case "/income":
		if len(fields) != 2 {
			errColor.Println("usage: /income <amount>")
			break
		}
		income, err := decimal.NewFromString(fields[1])
		if err != nil || income.IsNegative() {
			errColor.Printf("invalid amount %q\n", fields[1])
			break
		}
		if err := a.profiles.SetMonthlyIncome(ctx, income); err != nil {
			errColor.Printf("error: %v\n", err)
			break
		}
		fmt.Printf("monthly income set to $%s\n", income.StringFixed(2))
	case "/files":
		files, err := a.profiles.TrackedFiles(ctx)
		if err != nil {
			errColor.Printf("error: %v\n", err)
			break
		}
		if len(files) == 0 {
			fmt.Println("no files ingested yet")
			break
		}
		for _, f := range files {
			fmt.Printf("  %s  %s  (%d transactions, %s)\n",
				f.FileID, f.Filename, f.TransactionCount, f.UploadedAt.Format("2006-01-02"))
		}
	default:
		errColor.Printf("unknown command %s (try /help)\n", fields[0])
	}
	return false
}

func (a *app) ingestFile(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		errColor.Printf("error: %v\n", err)
		return
	}
	defer f.Close()

	records, err := source.ReadCSV(f)
	if err != nil {
		errColor.Printf("error: %v\n", err)
		return
	}

	ingestCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	report, err := a.ingester.IngestRecords(ingestCtx, uuid.New().String(), filepath.Base(path), records)
	if err != nil {
		errColor.Printf("error: %v\n", err)
		return
	}

	fmt.Printf("indexed %d transactions from %s\n", report.Indexed, filepath.Base(path))
	for _, item := range report.Failed {
		noteColor.Printf("  skipped %q: %s\n", item.Description, item.Message)
	}
}
