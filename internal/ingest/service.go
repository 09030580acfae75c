// Package ingest turns raw transaction records into categorized, indexed
// entries. Embedding calls are independent per transaction and run through a
// bounded worker pool; each item succeeds or fails on its own, so a partial
// batch failure never silently drops the remaining items and a crash
// mid-batch leaves already-applied upserts intact.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/finleyapp/finance-advisor/internal/categorize"
	"github.com/finleyapp/finance-advisor/internal/domain"
	"github.com/finleyapp/finance-advisor/internal/embed"
	"github.com/finleyapp/finance-advisor/internal/source"
	"github.com/finleyapp/finance-advisor/internal/vector"
)

// DefaultConcurrency bounds parallel embedding calls during batch ingestion.
const DefaultConcurrency = 4

// ErrFileAlreadyIngested is returned when a tracked file id is re-submitted.
var ErrFileAlreadyIngested = errors.New("file already ingested")

// FileTracker records which source files have been processed, preventing
// duplicate ingestion across re-uploads.
type FileTracker interface {
	IsTracked(ctx context.Context, fileID string) (bool, error)
	TrackFile(ctx context.Context, f domain.TrackedFile) error
}

// ItemError reports one failed transaction within a batch.
type ItemError struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Err         error  `json:"-"`
	Message     string `json:"error"`
}

// Report summarizes one ingestion run.
type Report struct {
	FileID   string      `json:"file_id"`
	Filename string      `json:"filename"`
	Indexed  int         `json:"indexed"`
	// Duplicates counts rows skipped because an identical row earlier in
	// the same batch already produced the same transaction id.
	Duplicates int         `json:"duplicates,omitempty"`
	Failed     []ItemError `json:"failed,omitempty"`
}

// Service ingests raw records: categorize, derive ids, embed, upsert.
type Service struct {
	Categorizer *categorize.Categorizer
	Embedder    embed.Embedder
	Index       vector.Index
	Files       FileTracker
	Concurrency int
	Log         zerolog.Logger
}

// NewService creates an ingestion service with default concurrency.
func NewService(c *categorize.Categorizer, e embed.Embedder, idx vector.Index, files FileTracker, log zerolog.Logger) *Service {
	return &Service{
		Categorizer: c,
		Embedder:    e,
		Index:       idx,
		Files:       files,
		Concurrency: DefaultConcurrency,
		Log:         log,
	}
}

// IngestRecords processes one source file's records. Item failures are
// collected in the report; the only hard errors are a duplicate file id and
// context cancellation.
func (s *Service) IngestRecords(ctx context.Context, fileID, filename string, records []source.Record) (Report, error) {
	report := Report{FileID: fileID, Filename: filename}

	if s.Files != nil {
		tracked, err := s.Files.IsTracked(ctx, fileID)
		if err != nil {
			return report, fmt.Errorf("IngestRecords: check tracked file: %w", err)
		}
		if tracked {
			return report, fmt.Errorf("IngestRecords: %s: %w", fileID, ErrFileAlreadyIngested)
		}
	}

	// Identical rows in one file derive the same stable id and would race
	// to upsert the same point; only the first copy is dispatched, so the
	// indexed count matches what the index actually stores.
	txs := make([]domain.Transaction, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		tx := s.Categorize(fileID, rec)
		if _, dup := seen[tx.ID]; dup {
			report.Duplicates++
			s.Log.Debug().Str("transaction_id", tx.ID).Str("description", tx.Description).
				Msg("duplicate row in batch skipped")
			continue
		}
		seen[tx.ID] = struct{}{}
		txs = append(txs, tx)
	}

	workers := s.Concurrency
	if workers <= 0 {
		workers = DefaultConcurrency
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		indexed int
	)
	sem := make(chan struct{}, workers)

	for _, tx := range txs {
		select {
		case <-ctx.Done():
			wg.Wait()
			report.Indexed = indexed
			return report, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(tx domain.Transaction) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.indexOne(ctx, tx); err != nil {
				s.Log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("transaction not indexed")
				mu.Lock()
				report.Failed = append(report.Failed, ItemError{
					ID:          tx.ID,
					Description: tx.Description,
					Err:         err,
					Message:     err.Error(),
				})
				mu.Unlock()
				return
			}
			mu.Lock()
			indexed++
			mu.Unlock()
		}(tx)
	}
	wg.Wait()
	report.Indexed = indexed

	if s.Files != nil {
		err := s.Files.TrackFile(ctx, domain.TrackedFile{
			FileID:           fileID,
			Filename:         filename,
			TransactionCount: indexed,
			UploadedAt:       time.Now(),
		})
		if err != nil {
			return report, fmt.Errorf("IngestRecords: track file: %w", err)
		}
	}

	s.Log.Info().
		Str("file_id", fileID).
		Int("indexed", indexed).
		Int("failed", len(report.Failed)).
		Msg("ingestion complete")
	return report, nil
}

func (s *Service) indexOne(ctx context.Context, tx domain.Transaction) error {
	vec, err := s.Embedder.Embed(ctx, tx.RawText)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	point := vector.Point{
		ID:     tx.ID,
		Vector: vec,
		Payload: vector.Payload{
			Description: tx.Description,
			Category:    tx.Category,
			Date:        tx.Date.Format("2006-01-02"),
			DateKey:     vector.DateKeyOf(tx.Date),
			Amount:      tx.Amount.InexactFloat64(),
			Direction:   string(tx.Direction),
			FileID:      tx.FileID,
		},
	}
	if err := s.Index.Upsert(ctx, point); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Categorize builds the full domain transaction for one raw record: stable
// id, category assignment and the rendered embedding text.
func (s *Service) Categorize(fileID string, rec source.Record) domain.Transaction {
	category, confidence := s.Categorizer.Categorize(rec.Description)
	tx := domain.Transaction{
		ID:                 domain.NewTransactionID(rec.Date, rec.Description, rec.Amount),
		Date:               rec.Date,
		Description:        rec.Description,
		Amount:             rec.Amount,
		Direction:          domain.DirectionOf(rec.Amount),
		Category:           category,
		CategoryConfidence: confidence,
		FileID:             fileID,
	}
	tx.RawText = EmbeddingText(tx)
	return tx
}

// EmbeddingText renders the text that gets embedded. It includes the
// assigned category so retrieval can match on category terms even when the
// raw description shares no words with the query.
func EmbeddingText(tx domain.Transaction) string {
	return fmt.Sprintf("Transaction on %s\nDescription: %s\nAmount: $%s (%s)\nCategory: %s",
		tx.Date.Format("2006-01-02"),
		tx.Description,
		tx.Amount.Abs().StringFixed(2),
		tx.Direction,
		tx.Category)
}
