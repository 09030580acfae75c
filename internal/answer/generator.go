package answer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/finleyapp/finance-advisor/internal/domain"
)

// Completer is the external completion capability. Implementations may fail
// transiently (timeout, rate limit) or permanently.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Generator builds the prompt and invokes the completion service. One retry
// with backoff on transient failure; after that the answer degrades to a
// numbers-only summary built from the aggregation report, so the user never
// sees a raw error.
type Generator struct {
	Completer Completer
	Backoff   time.Duration
	Log       zerolog.Logger
}

// NewGenerator creates a Generator with the default backoff.
func NewGenerator(c Completer, log zerolog.Logger) *Generator {
	return &Generator{Completer: c, Backoff: 500 * time.Millisecond, Log: log}
}

const systemPrompt = `You are Finley, a friendly personal finance advisor.
You answer questions about the user's own transactions using ONLY the data
provided in the context block. Rules:
- For greetings, greet back briefly and offer help; do not dump numbers.
- For financial questions, give specific figures from the context and keep
  the answer concise, with at most one practical tip.
- If the context says no matching transactions were found, say so plainly
  and suggest what the user could ask instead.
- Never invent transactions or amounts that are not in the context.`

// Generate produces the answer text. The boolean result reports whether the
// answer is the degraded numeric fallback. Only context cancellation is
// returned as an error.
func (g *Generator) Generate(ctx context.Context, question, contextText string, report domain.AggregationReport, history *History) (string, bool, error) {
	prompt := buildPrompt(question, contextText, history)

	text, err := g.Completer.Complete(ctx, systemPrompt, prompt)
	if err == nil {
		return strings.TrimSpace(text), false, nil
	}
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}

	if Transient(err) {
		g.Log.Warn().Err(err).Msg("completion failed transiently, retrying once")
		select {
		case <-time.After(g.backoff()):
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
		text, err = g.Completer.Complete(ctx, systemPrompt, prompt)
		if err == nil {
			return strings.TrimSpace(text), false, nil
		}
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
	}

	g.Log.Error().Err(err).Msg("completion unavailable, returning degraded answer")
	return Degraded(report), true, nil
}

func (g *Generator) backoff() time.Duration {
	if g.Backoff > 0 {
		return g.Backoff
	}
	return 500 * time.Millisecond
}

func buildPrompt(question, contextText string, history *History) string {
	var sb strings.Builder

	if turns := history.Turns(); len(turns) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, t := range turns {
			fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
		}
		sb.WriteByte('\n')
	}

	sb.WriteString("Transaction context:\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\nQUESTION: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer based on the context above.")
	return sb.String()
}

// Degraded builds the numbers-only fallback answer from the report. It is
// clearly labeled and contains no generated prose and no raw error text.
func Degraded(report domain.AggregationReport) string {
	var sb strings.Builder
	sb.WriteString("(The advisor is temporarily unavailable; here are the raw numbers.)\n")
	fmt.Fprintf(&sb, "Total spend across %d matching transactions: $%s\n",
		report.TransactionCount, report.TotalSpend.StringFixed(2))

	if report.IncomePercentage != nil {
		fmt.Fprintf(&sb, "That is %s%% of your monthly income ($%s), leaving a surplus of $%s.\n",
			report.IncomePercentage.String(),
			report.MonthlyIncome.StringFixed(2),
			report.Surplus.StringFixed(2))
	} else if report.AverageExpense.IsPositive() {
		fmt.Fprintf(&sb, "No monthly income is configured; the average expense in this set is $%s.\n",
			report.AverageExpense.StringFixed(2))
	}
	for _, ct := range report.CategoryTotals {
		fmt.Fprintf(&sb, "- %s: $%s (%d)\n", ct.Category, ct.Total.StringFixed(2), ct.Count)
	}
	return sb.String()
}

// Transient reports whether an error is worth one retry: timeouts, rate
// limits and server-side unavailability.
func Transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "unavailable")
}
