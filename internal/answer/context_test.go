package answer

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finleyapp/finance-advisor/internal/domain"
)

func result(i int, description string) domain.RetrievalResult {
	return domain.RetrievalResult{
		Transaction: domain.Transaction{
			Date:        time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC),
			Description: description,
			Amount:      decimal.NewFromFloat(-10.50),
			Category:    "Dining",
		},
		Score: 1.0 - float64(i)*0.01,
	}
}

func sampleReport() domain.AggregationReport {
	pct := decimal.RequireFromString("8.4")
	return domain.AggregationReport{
		CategoryTotals: []domain.CategoryTotal{
			{Category: "Dining", Total: decimal.RequireFromString("420.00"), Count: 40},
		},
		TotalSpend:       decimal.RequireFromString("420.00"),
		MonthlyIncome:    decimal.NewFromInt(5000),
		IncomePercentage: &pct,
		Surplus:          decimal.RequireFromString("4580.00"),
		TransactionCount: 40,
	}
}

func TestBuild_SummaryComesFirst(t *testing.T) {
	b := NewContextBuilder()
	out := b.Build([]domain.RetrievalResult{result(0, "STARBUCKS #1234")}, sampleReport())

	if !strings.HasPrefix(out, "SUMMARY:") {
		t.Errorf("context does not start with summary:\n%s", out)
	}
	if !strings.Contains(out, "$420.00") {
		t.Errorf("missing total spend:\n%s", out)
	}
	if !strings.Contains(out, "8.4%") {
		t.Errorf("missing income percentage:\n%s", out)
	}
	if !strings.Contains(out, "STARBUCKS #1234") {
		t.Errorf("missing transaction line:\n%s", out)
	}
}

func TestBuild_NoIncomeSummaryCarriesAverageExpense(t *testing.T) {
	report := domain.AggregationReport{
		CategoryTotals: []domain.CategoryTotal{
			{Category: "Dining", Total: decimal.RequireFromString("400.00"), Count: 2},
		},
		TotalSpend:       decimal.RequireFromString("400.00"),
		Surplus:          decimal.RequireFromString("-400.00"),
		AverageExpense:   decimal.RequireFromString("200.00"),
		TransactionCount: 2,
	}

	b := NewContextBuilder()
	out := b.Build([]domain.RetrievalResult{result(0, "DINNER")}, report)

	if !strings.Contains(out, "not configured") {
		t.Errorf("missing income-unset note:\n%s", out)
	}
	if !strings.Contains(out, "Average expense in this set: $200.00") {
		t.Errorf("missing average-expense yardstick:\n%s", out)
	}
}

func TestBuild_NeverExceedsBudget(t *testing.T) {
	b := &ContextBuilder{MaxChars: 400, MaxTransactions: 50}

	var results []domain.RetrievalResult
	for i := 0; i < 30; i++ {
		results = append(results, result(i, strings.Repeat("LONG MERCHANT NAME ", 3)))
	}

	out := b.Build(results, sampleReport())
	if len(out) > 400 {
		t.Fatalf("context length %d exceeds budget 400", len(out))
	}
	// The summary must have survived the truncation.
	if !strings.HasPrefix(out, "SUMMARY:") {
		t.Errorf("summary was truncated away:\n%s", out)
	}
}

func TestBuild_TruncatesFromTheTail(t *testing.T) {
	b := &ContextBuilder{MaxChars: 100000, MaxTransactions: 2}

	results := []domain.RetrievalResult{
		result(0, "KEEP-FIRST"),
		result(1, "KEEP-SECOND"),
		result(2, "DROP-THIRD"),
	}

	out := b.Build(results, sampleReport())
	if !strings.Contains(out, "KEEP-FIRST") || !strings.Contains(out, "KEEP-SECOND") {
		t.Errorf("top-ranked lines missing:\n%s", out)
	}
	if strings.Contains(out, "DROP-THIRD") {
		t.Errorf("lowest-ranked line should be dropped:\n%s", out)
	}
}

func TestBuild_EmptyRetrievalIsExplicit(t *testing.T) {
	b := NewContextBuilder()
	out := b.Build(nil, domain.AggregationReport{})

	if out == "" {
		t.Fatal("empty context produced")
	}
	if !strings.Contains(out, "No matching transactions") {
		t.Errorf("expected explicit no-results context, got:\n%s", out)
	}
}

func TestHistory_SlidingWindow(t *testing.T) {
	h := NewHistory(4)
	for _, s := range []string{"one", "two", "three", "four", "five", "six"} {
		h.Add("user", s)
	}

	turns := h.Turns()
	if len(turns) != 4 {
		t.Fatalf("len = %d, want 4", len(turns))
	}
	if turns[0].Content != "three" || turns[3].Content != "six" {
		t.Errorf("oldest turns were not dropped first: %+v", turns)
	}
}
