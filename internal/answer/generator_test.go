package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finleyapp/finance-advisor/internal/domain"
)

type fakeCompleter struct {
	errs    []error // consumed one per call; nil means success
	calls   int
	answer  string
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.answer, nil
}

func testGenerator(c Completer) *Generator {
	g := NewGenerator(c, zerolog.Nop())
	g.Backoff = time.Millisecond
	return g
}

func reportWithSpend(spend string) domain.AggregationReport {
	return domain.AggregationReport{
		TotalSpend:       decimal.RequireFromString(spend),
		TransactionCount: 3,
		CategoryTotals: []domain.CategoryTotal{
			{Category: "Dining", Total: decimal.RequireFromString(spend), Count: 3},
		},
	}
}

func TestGenerate_Success(t *testing.T) {
	fc := &fakeCompleter{answer: "You spent $42 on coffee."}
	g := testGenerator(fc)

	text, degraded, err := g.Generate(context.Background(), "coffee?", "ctx", reportWithSpend("42"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if degraded {
		t.Error("unexpected degradation")
	}
	if text != "You spent $42 on coffee." {
		t.Errorf("text = %q", text)
	}
	if fc.calls != 1 {
		t.Errorf("calls = %d, want 1", fc.calls)
	}
}

func TestGenerate_TransientFailureRetriedOnce(t *testing.T) {
	fc := &fakeCompleter{
		errs:   []error{fmt.Errorf("rate limit exceeded"), nil},
		answer: "recovered",
	}
	g := testGenerator(fc)

	text, degraded, err := g.Generate(context.Background(), "q", "ctx", reportWithSpend("10"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if degraded || text != "recovered" {
		t.Errorf("text=%q degraded=%v", text, degraded)
	}
	if fc.calls != 2 {
		t.Errorf("calls = %d, want 2", fc.calls)
	}
}

func TestGenerate_PersistentFailureDegrades(t *testing.T) {
	boom := errors.New("service unavailable")
	fc := &fakeCompleter{errs: []error{boom, boom}}
	g := testGenerator(fc)

	text, degraded, err := g.Generate(context.Background(), "q", "ctx", reportWithSpend("141.97"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !degraded {
		t.Fatal("expected degraded answer")
	}
	if !strings.Contains(text, "$141.97") {
		t.Errorf("degraded answer must contain the total spend:\n%s", text)
	}
	if strings.Contains(text, "service unavailable") {
		t.Errorf("raw error leaked into the answer:\n%s", text)
	}
}

func TestDegraded_NoIncomeShowsAverageExpense(t *testing.T) {
	report := reportWithSpend("300.00")
	report.AverageExpense = decimal.RequireFromString("100.00")

	text := Degraded(report)
	if !strings.Contains(text, "average expense in this set is $100.00") {
		t.Errorf("missing average-expense line:\n%s", text)
	}
	if strings.Contains(text, "surplus") {
		t.Errorf("surplus line should not appear without income:\n%s", text)
	}
}

func TestGenerate_PermanentErrorNotRetried(t *testing.T) {
	fc := &fakeCompleter{errs: []error{errors.New("invalid api key"), nil}}
	g := testGenerator(fc)

	_, degraded, err := g.Generate(context.Background(), "q", "ctx", reportWithSpend("1"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !degraded {
		t.Error("expected degraded answer for permanent failure")
	}
	if fc.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry for permanent errors)", fc.calls)
	}
}

func TestGenerate_HistoryAndContextInPrompt(t *testing.T) {
	fc := &fakeCompleter{answer: "ok"}
	g := testGenerator(fc)

	h := NewHistory(6)
	h.Add("user", "how much on coffee?")
	h.Add("assistant", "$42 this month")

	_, _, err := g.Generate(context.Background(), "and groceries?", "CONTEXT-BLOCK", reportWithSpend("1"), h)
	if err != nil {
		t.Fatal(err)
	}

	prompt := fc.prompts[0]
	for _, want := range []string{"how much on coffee?", "$42 this month", "CONTEXT-BLOCK", "and groceries?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	// History must precede the context, and the context the question.
	if strings.Index(prompt, "how much on coffee?") > strings.Index(prompt, "CONTEXT-BLOCK") {
		t.Error("history should come before the context block")
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{context.DeadlineExceeded, true},
		{errors.New("rate limit exceeded"), true},
		{errors.New("backend temporarily unavailable"), true},
		{errors.New("invalid api key"), false},
		{errors.New("bad request"), false},
	}
	for _, tt := range tests {
		if got := Transient(tt.err); got != tt.want {
			t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
