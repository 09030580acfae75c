package domain

import "github.com/shopspring/decimal"

// CategoryTotal is the absolute spend accumulated for one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// AggregationReport summarizes a retrieved, query-relevant transaction set.
// It deliberately describes the retrieved set, not the whole corpus.
type AggregationReport struct {
	// CategoryTotals is ranked by total descending, ties alphabetical.
	CategoryTotals []CategoryTotal `json:"category_totals"`

	TotalSpend  decimal.Decimal `json:"total_spend"`
	TotalIncome decimal.Decimal `json:"total_income"`

	MonthlyIncome decimal.Decimal `json:"monthly_income"`

	// IncomePercentage is total_spend/monthly_income*100, nil when the
	// monthly income is zero or unset.
	IncomePercentage *decimal.Decimal `json:"income_percentage,omitempty"`

	// Surplus is monthly_income - total_spend.
	Surplus decimal.Decimal `json:"surplus"`

	// AverageExpense is the mean absolute expense of the retrieved set,
	// zero when it contains no expenses. It is the affordability basis
	// when no monthly income is configured.
	AverageExpense decimal.Decimal `json:"average_expense"`

	TransactionCount int `json:"transaction_count"`
}
