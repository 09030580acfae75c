// Package aggregate computes the numeric summary of a retrieved transaction
// set: per-category totals, percentage of monthly income, surplus, and the
// affordability verdict. It deliberately works on the retrieved set, not the
// whole corpus, since retrieval is already scoped by the query's intent.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/finleyapp/finance-advisor/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Aggregate builds an AggregationReport from retrieval results and the user
// profile. Category totals sum absolute expense amounts; income-side
// transactions accumulate into TotalIncome and never into spend. When the
// profile's monthly income is zero or unset, IncomePercentage stays nil
// rather than dividing by zero.
func Aggregate(results []domain.RetrievalResult, profile domain.Profile) domain.AggregationReport {
	byCategory := make(map[string]*domain.CategoryTotal)
	totalIncome := decimal.Zero
	expenseCount := 0

	for _, r := range results {
		tx := r.Transaction
		if !tx.IsExpense() {
			totalIncome = totalIncome.Add(tx.Amount)
			continue
		}
		expenseCount++
		ct := byCategory[tx.Category]
		if ct == nil {
			ct = &domain.CategoryTotal{Category: tx.Category}
			byCategory[tx.Category] = ct
		}
		ct.Total = ct.Total.Add(tx.Amount.Abs())
		ct.Count++
	}

	totals := make([]domain.CategoryTotal, 0, len(byCategory))
	totalSpend := decimal.Zero
	for _, ct := range byCategory {
		totals = append(totals, *ct)
		totalSpend = totalSpend.Add(ct.Total)
	}

	// Rank by total descending; alphabetical on ties for determinism.
	sort.Slice(totals, func(i, j int) bool {
		if !totals[i].Total.Equal(totals[j].Total) {
			return totals[i].Total.GreaterThan(totals[j].Total)
		}
		return totals[i].Category < totals[j].Category
	})

	report := domain.AggregationReport{
		CategoryTotals:   totals,
		TotalSpend:       totalSpend,
		TotalIncome:      totalIncome,
		MonthlyIncome:    profile.MonthlyIncome,
		Surplus:          profile.MonthlyIncome.Sub(totalSpend),
		TransactionCount: len(results),
	}
	if expenseCount > 0 {
		report.AverageExpense = totalSpend.Div(decimal.NewFromInt(int64(expenseCount)))
	}

	if profile.HasIncome() {
		pct := totalSpend.Div(profile.MonthlyIncome).Mul(hundred).Round(1)
		report.IncomePercentage = &pct
	}
	return report
}

// Verdict is the outcome of an affordability question.
type Verdict struct {
	Affordable bool
	// Basis names the heuristic used: "surplus" when a monthly income is
	// configured, "average_expense" otherwise.
	Basis  string
	Margin decimal.Decimal
}

// Affordability decides whether an amount fits the user's finances. With a
// configured income the verdict compares against the report's surplus. With
// no income it falls back to comparing against the report's average absolute
// expense, so the question still gets a defined answer.
func Affordability(report domain.AggregationReport, amount decimal.Decimal) Verdict {
	if report.MonthlyIncome.IsPositive() {
		margin := report.Surplus.Sub(amount)
		return Verdict{
			Affordable: !margin.IsNegative(),
			Basis:      "surplus",
			Margin:     margin,
		}
	}

	margin := report.AverageExpense.Sub(amount)
	return Verdict{
		Affordable: !margin.IsNegative(),
		Basis:      "average_expense",
		Margin:     margin,
	}
}
