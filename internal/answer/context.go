// Package answer turns retrieval results and an aggregation report into a
// bounded context block, and drives the completion service to produce the
// final grounded answer, degrading to a numbers-only reply when the service
// is unavailable.
package answer

import (
	"fmt"
	"strings"

	"github.com/finleyapp/finance-advisor/internal/domain"
)

const (
	// DefaultMaxChars bounds the context block so the downstream prompt
	// stays within the completion service's limits.
	DefaultMaxChars = 4000
	// DefaultMaxTransactions caps individual transaction lines.
	DefaultMaxTransactions = 15
)

// EmptyContext is produced when retrieval found nothing; the generator must
// never receive an ambiguous empty string.
const EmptyContext = "No matching transactions were found for this question."

// ContextBuilder assembles the textual context for the prompt.
type ContextBuilder struct {
	MaxChars        int
	MaxTransactions int
}

// NewContextBuilder returns a builder with default limits.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{MaxChars: DefaultMaxChars, MaxTransactions: DefaultMaxTransactions}
}

// Build renders the context: aggregation summary first, then transaction
// lines in retrieval rank order. When the budget would be exceeded the
// lowest-ranked transaction lines are dropped; the summary is never cut
// (except by the final hard cap when the summary alone exceeds the budget).
func (b *ContextBuilder) Build(results []domain.RetrievalResult, report domain.AggregationReport) string {
	maxChars := b.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	maxTx := b.MaxTransactions
	if maxTx <= 0 {
		maxTx = DefaultMaxTransactions
	}

	if len(results) == 0 {
		return EmptyContext
	}

	var sb strings.Builder
	sb.WriteString(summary(report))

	lines := make([]string, 0, maxTx)
	for i, r := range results {
		if i >= maxTx {
			break
		}
		tx := r.Transaction
		lines = append(lines, fmt.Sprintf("  %s  %s  %s  (%s)",
			tx.Date.Format("2006-01-02"), tx.Description, tx.Amount.StringFixed(2), tx.Category))
	}

	if len(lines) > 0 {
		header := "\nTRANSACTIONS (most relevant first):\n"
		if sb.Len()+len(header) <= maxChars {
			sb.WriteString(header)
			for _, line := range lines {
				if sb.Len()+len(line)+1 > maxChars {
					break
				}
				sb.WriteString(line)
				sb.WriteByte('\n')
			}
		}
	}

	out := sb.String()
	if len(out) > maxChars {
		out = out[:maxChars]
	}
	return out
}

func summary(report domain.AggregationReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "SUMMARY: %d relevant transactions, total spend $%s\n",
		report.TransactionCount, report.TotalSpend.StringFixed(2))

	if report.IncomePercentage != nil {
		fmt.Fprintf(&sb, "This is %s%% of the monthly income ($%s); surplus after this spend: $%s\n",
			report.IncomePercentage.String(),
			report.MonthlyIncome.StringFixed(2),
			report.Surplus.StringFixed(2))
	} else {
		sb.WriteString("Monthly income is not configured, so income percentage is unavailable.\n")
		if report.AverageExpense.IsPositive() {
			fmt.Fprintf(&sb, "Average expense in this set: $%s (use this as the affordability yardstick)\n",
				report.AverageExpense.StringFixed(2))
		}
	}

	if report.TotalIncome.IsPositive() {
		fmt.Fprintf(&sb, "Money in across these transactions: $%s\n", report.TotalIncome.StringFixed(2))
	}

	for _, ct := range report.CategoryTotals {
		fmt.Fprintf(&sb, "  %s: $%s (%d transactions)\n", ct.Category, ct.Total.StringFixed(2), ct.Count)
	}
	return sb.String()
}
