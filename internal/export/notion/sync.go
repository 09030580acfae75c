package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"

	"github.com/finleyapp/finance-advisor/internal/domain"
)

// Result summarizes one sync run.
type Result struct {
	Created int
	Skipped int
	Deleted int
}

// Syncer mirrors the local transaction set into one Notion database.
type Syncer struct {
	Writer     PageWriter
	DatabaseID string
	DryRun     bool
	Log        zerolog.Logger
}

// Sync makes the Notion database match txs. Pages whose Transaction ID is
// not in txs are archived; transactions without a page are created; existing
// pages are left alone since transactions are immutable. Per-page failures
// are logged and skipped so one bad page cannot wedge the whole export.
func (s *Syncer) Sync(ctx context.Context, txs []domain.Transaction) (Result, error) {
	var res Result

	valid := make(map[string]bool, len(txs))
	for _, tx := range txs {
		valid[tx.ID] = true
	}

	pages, err := s.allPages(ctx)
	if err != nil {
		return res, fmt.Errorf("Sync: %w", err)
	}

	existing := make(map[string]bool, len(pages))
	for _, page := range pages {
		id := pageTransactionID(page)
		if id != "" && valid[id] {
			existing[id] = true
			continue
		}
		// Stale page, or a page from before ids were recorded.
		if s.DryRun {
			s.Log.Info().Str("page_id", string(page.ID)).Msg("would archive stale page")
			res.Deleted++
			continue
		}
		if err := s.Writer.DeletePage(ctx, string(page.ID)); err != nil {
			s.Log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("stale page not archived")
			continue
		}
		res.Deleted++
	}

	for _, tx := range txs {
		if existing[tx.ID] {
			res.Skipped++
			continue
		}
		if s.DryRun {
			s.Log.Info().Str("transaction_id", tx.ID).Msg("would create page")
			res.Created++
			continue
		}
		if _, err := s.Writer.CreatePage(ctx, s.DatabaseID, TransactionProperties(tx)); err != nil {
			s.Log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("page not created")
			continue
		}
		res.Created++
	}

	s.Log.Info().
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("deleted", res.Deleted).
		Msg("notion sync complete")
	return res, nil
}

func (s *Syncer) allPages(ctx context.Context) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor
	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}
		resp, err := s.Writer.QueryDatabase(ctx, s.DatabaseID, req)
		if err != nil {
			return nil, fmt.Errorf("allPages: %w", err)
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return pages, nil
}
