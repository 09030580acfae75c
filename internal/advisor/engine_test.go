package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finleyapp/finance-advisor/internal/answer"
	"github.com/finleyapp/finance-advisor/internal/categorize"
	"github.com/finleyapp/finance-advisor/internal/config"
	"github.com/finleyapp/finance-advisor/internal/domain"
	"github.com/finleyapp/finance-advisor/internal/retrieve"
	"github.com/finleyapp/finance-advisor/internal/vector"
)

type fixedEmbedder struct{ vec []float32 }

func (f fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}
func (f fixedEmbedder) Dimension() int { return len(f.vec) }

type staticProfiles struct{ income string }

func (s staticProfiles) Profile(ctx context.Context) (domain.Profile, error) {
	if s.income == "" {
		return domain.Profile{}, errors.New("no profile")
	}
	return domain.Profile{MonthlyIncome: decimal.RequireFromString(s.income)}, nil
}

type scriptedCompleter struct {
	err  error
	text string
}

func (s scriptedCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type recordingCompleter struct {
	prompt string
}

func (r *recordingCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	r.prompt = prompt
	return "answer", nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding service unreachable")
}
func (failingEmbedder) Dimension() int { return 2 }

func seedFood(t *testing.T, idx *vector.Memory) {
	t.Helper()
	rows := []struct {
		id, category, date string
		amount             float64
	}{
		{"starbucks", "Dining", "2024-03-01", -6.75},
		{"chipotle", "Dining", "2024-03-03", -12.45},
		{"wholefoods", "Groceries", "2024-03-05", -88.10},
		{"ubereats", "Food Delivery", "2024-03-07", -34.67},
	}
	for _, r := range rows {
		d, _ := time.Parse("2006-01-02", r.date)
		err := idx.Upsert(context.Background(), vector.Point{
			ID:     r.id,
			Vector: []float32{1, 0},
			Payload: vector.Payload{
				Description: strings.ToUpper(r.id),
				Category:    r.category,
				Date:        r.date,
				DateKey:     vector.DateKeyOf(d),
				Amount:      r.amount,
				Direction:   "expense",
				FileID:      "demo",
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func newEngine(idx *vector.Memory, profiles ProfileReader, completer answer.Completer) *Engine {
	r := retrieve.New(fixedEmbedder{vec: []float32{1, 0}}, idx, categorize.New(config.DefaultCategories()))
	r.Now = func() time.Time { return time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC) }
	g := answer.NewGenerator(completer, zerolog.Nop())
	g.Backoff = time.Millisecond
	return &Engine{
		Retriever: r,
		Profiles:  profiles,
		Context:   answer.NewContextBuilder(),
		Generator: g,
		Log:       zerolog.Nop(),
	}
}

func TestAsk_FoodSpendScenario(t *testing.T) {
	idx := vector.NewMemory()
	seedFood(t, idx)

	e := newEngine(idx, staticProfiles{income: "5000"}, scriptedCompleter{text: "answer"})
	got, err := e.Ask(context.Background(), "How much did I spend on food this month?", nil)
	if err != nil {
		t.Fatal(err)
	}

	want := decimal.RequireFromString("141.97") // 6.75+12.45+88.10+34.67
	if !got.Report.TotalSpend.Equal(want) {
		t.Errorf("total spend = %s, want %s", got.Report.TotalSpend, want)
	}
	if got.Report.IncomePercentage == nil {
		t.Fatal("income percentage should be defined with income 5000")
	}
	if got.Degraded {
		t.Error("unexpected degradation")
	}
}

func TestAsk_CompletionDownYieldsDegradedNumbers(t *testing.T) {
	idx := vector.NewMemory()
	seedFood(t, idx)

	e := newEngine(idx, staticProfiles{income: "5000"}, scriptedCompleter{err: errors.New("dial tcp: connection refused")})
	got, err := e.Ask(context.Background(), "How much did I spend on food this month?", nil)
	if err != nil {
		t.Fatal(err)
	}

	if !got.Degraded {
		t.Fatal("expected degraded answer")
	}
	if !strings.Contains(got.Text, "$141.97") {
		t.Errorf("degraded answer missing total spend:\n%s", got.Text)
	}
	if strings.Contains(got.Text, "connection refused") {
		t.Errorf("raw error leaked:\n%s", got.Text)
	}
}

func TestAsk_RetrievalDownYieldsDegradedAnswer(t *testing.T) {
	idx := vector.NewMemory()
	seedFood(t, idx)

	e := newEngine(idx, staticProfiles{income: "5000"}, scriptedCompleter{text: "answer"})
	e.Retriever = retrieve.New(failingEmbedder{}, idx, categorize.New(config.DefaultCategories()))

	got, err := e.Ask(context.Background(), "How much did I spend on food?", nil)
	if err != nil {
		t.Fatalf("Ask should degrade, not error: %v", err)
	}
	if !got.Degraded {
		t.Fatal("expected degraded answer when retrieval is down")
	}
	if got.Text == "" {
		t.Fatal("degraded answer must carry text")
	}
	if strings.Contains(got.Text, "unreachable") {
		t.Errorf("raw error leaked:\n%s", got.Text)
	}
}

func TestAsk_RetrievalCancellationPropagates(t *testing.T) {
	idx := vector.NewMemory()
	e := newEngine(idx, staticProfiles{income: "5000"}, scriptedCompleter{text: "answer"})
	e.Retriever = retrieve.New(failingEmbedder{}, idx, categorize.New(config.DefaultCategories()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Ask(ctx, "anything", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestAsk_AffordabilityWithIncomeUsesSurplus(t *testing.T) {
	idx := vector.NewMemory()
	seedFood(t, idx) // 141.97 spend

	completer := &recordingCompleter{}
	e := newEngine(idx, staticProfiles{income: "482"}, completer) // surplus 340.03
	if _, err := e.Ask(context.Background(), "Can I afford a $300 jacket?", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(completer.prompt, "AFFORDABILITY: $300.00") {
		t.Fatalf("prompt missing affordability line:\n%s", completer.prompt)
	}
	if !strings.Contains(completer.prompt, "monthly surplus: affordable") {
		t.Errorf("want affordable verdict on surplus 340.03:\n%s", completer.prompt)
	}

	e = newEngine(idx, staticProfiles{income: "342"}, completer) // surplus 200.03
	if _, err := e.Ask(context.Background(), "Can I afford a $300 jacket?", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(completer.prompt, "monthly surplus: not affordable") {
		t.Errorf("want not-affordable verdict on surplus 200.03:\n%s", completer.prompt)
	}
}

func TestAsk_AffordabilityWithoutIncomeUsesAverageExpense(t *testing.T) {
	idx := vector.NewMemory()
	seedFood(t, idx) // average expense 141.97/4 = 35.4925

	completer := &recordingCompleter{}
	e := newEngine(idx, staticProfiles{}, completer)
	if _, err := e.Ask(context.Background(), "Can I afford 30 for lunch?", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(completer.prompt, "average expense in this set") {
		t.Fatalf("prompt missing average-expense basis:\n%s", completer.prompt)
	}
	if !strings.Contains(completer.prompt, "affordable") {
		t.Errorf("30 is under the 35.49 average expense:\n%s", completer.prompt)
	}
}

func TestAsk_NonAffordabilityQuestionSkipsVerdict(t *testing.T) {
	idx := vector.NewMemory()
	seedFood(t, idx)

	completer := &recordingCompleter{}
	e := newEngine(idx, staticProfiles{income: "5000"}, completer)
	if _, err := e.Ask(context.Background(), "How much did I spend on 3 coffees?", nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(completer.prompt, "AFFORDABILITY") {
		t.Errorf("verdict injected into a non-affordability question:\n%s", completer.prompt)
	}
}

func TestAsk_MissingProfileStillAnswers(t *testing.T) {
	idx := vector.NewMemory()
	seedFood(t, idx)

	e := newEngine(idx, staticProfiles{}, scriptedCompleter{text: "ok"})
	got, err := e.Ask(context.Background(), "where does my money go", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Report.IncomePercentage != nil {
		t.Error("income percentage should be undefined without a profile")
	}
}
