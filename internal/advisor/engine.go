// Package advisor wires the query pipeline: retrieval, aggregation, context
// building and answer generation, one strictly sequential turn per question.
package advisor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finleyapp/finance-advisor/internal/aggregate"
	"github.com/finleyapp/finance-advisor/internal/answer"
	"github.com/finleyapp/finance-advisor/internal/domain"
	"github.com/finleyapp/finance-advisor/internal/retrieve"
)

// ProfileReader provides the user profile consumed by aggregation.
type ProfileReader interface {
	Profile(ctx context.Context) (domain.Profile, error)
}

// Answer is the outcome of one query turn.
type Answer struct {
	Text     string                   `json:"text"`
	Degraded bool                     `json:"degraded"`
	Report   domain.AggregationReport `json:"report"`
	Results  []domain.RetrievalResult `json:"-"`
	Query    domain.Query             `json:"query"`
}

// Engine answers questions about the user's transactions.
type Engine struct {
	Retriever *retrieve.Retriever
	Profiles  ProfileReader
	Context   *answer.ContextBuilder
	Generator *answer.Generator
	Log       zerolog.Logger
}

const retrievalDownText = "(The advisor is temporarily unavailable: your transactions could not be searched right now. Please try again in a moment.)"

// Ask runs one query turn. Stages run sequentially, each honoring ctx, so a
// caller can cancel a turn that has been superseded. Query-time failures
// degrade instead of erroring: the user always gets some answer. Only context
// cancellation is returned as an error.
func (e *Engine) Ask(ctx context.Context, question string, history *answer.History) (Answer, error) {
	results, query, err := e.Retriever.Retrieve(ctx, question)
	if err != nil {
		if ctx.Err() != nil {
			return Answer{}, ctx.Err()
		}
		e.Log.Error().Err(err).Msg("retrieval unavailable, returning degraded answer")
		return Answer{Text: retrievalDownText, Degraded: true}, nil
	}

	profile, err := e.Profiles.Profile(ctx)
	if err != nil {
		// Aggregation still works without a profile; percentage and
		// surplus simply become undefined.
		e.Log.Warn().Err(err).Msg("profile unavailable, aggregating without income")
		profile = domain.Profile{}
	}

	report := aggregate.Aggregate(results, profile)
	contextText := e.Context.Build(results, report)
	if amount, ok := affordabilityAmount(question); ok {
		contextText += affordabilityLine(aggregate.Affordability(report, amount), amount)
	}

	e.Log.Debug().
		Int("results", len(results)).
		Str("category_filter", query.Filters.Category).
		Msg("retrieval complete")

	text, degraded, err := e.Generator.Generate(ctx, question, contextText, report, history)
	if err != nil {
		return Answer{}, fmt.Errorf("Ask: %w", err)
	}

	return Answer{
		Text:     text,
		Degraded: degraded,
		Report:   report,
		Results:  results,
		Query:    query,
	}, nil
}

var (
	dollarAmountPattern = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	bareAmountPattern   = regexp.MustCompile(`\b([0-9][0-9,]*(?:\.[0-9]{1,2})?)\b`)
)

// affordabilityAmount extracts the dollar amount from an affordability
// question ("can I afford a $300 jacket?"). A "$"-prefixed figure wins;
// otherwise the first bare number is taken. Returns false when the question
// is not about affording something or carries no positive amount.
func affordabilityAmount(question string) (decimal.Decimal, bool) {
	if !strings.Contains(strings.ToLower(question), "afford") {
		return decimal.Decimal{}, false
	}
	m := dollarAmountPattern.FindStringSubmatch(question)
	if m == nil {
		m = bareAmountPattern.FindStringSubmatch(question)
	}
	if m == nil {
		return decimal.Decimal{}, false
	}
	amt, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || !amt.IsPositive() {
		return decimal.Decimal{}, false
	}
	return amt, true
}

// affordabilityLine renders the verdict for the context block so the
// generated answer is grounded in the computed numbers rather than the
// model's own arithmetic.
func affordabilityLine(v aggregate.Verdict, amount decimal.Decimal) string {
	basis := "monthly surplus"
	if v.Basis == "average_expense" {
		basis = "average expense in this set (no monthly income configured)"
	}
	verdict := "affordable"
	phrase := "within budget by"
	if !v.Affordable {
		verdict = "not affordable"
		phrase = "over by"
	}
	return fmt.Sprintf("\nAFFORDABILITY: $%s compared against the %s: %s (%s $%s)\n",
		amount.StringFixed(2), basis, verdict, phrase, v.Margin.Abs().StringFixed(2))
}
