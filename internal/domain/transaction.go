package domain

import (
	"crypto/sha256"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Confidence describes how a transaction was matched to its category.
type Confidence string

const (
	// ConfidenceExact means the whole normalized description equals a keyword.
	ConfidenceExact Confidence = "exact"
	// ConfidencePartial means a keyword matched as a substring only.
	ConfidencePartial Confidence = "partial"
	// ConfidenceFallback means no keyword matched and the fallback category was assigned.
	ConfidenceFallback Confidence = "fallback"
)

// Direction distinguishes money in from money out.
type Direction string

const (
	DirectionExpense Direction = "expense"
	DirectionIncome  Direction = "income"
)

// Transaction represents one normalized transaction. Amount is signed:
// negative for money OUT, positive for money IN.
type Transaction struct {
	ID          string // stable, derived from date+description+amount
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Direction   Direction

	Category           string // assigned by the categorizer, empty until categorized
	CategoryConfidence Confidence

	FileID  string // source file this transaction was ingested from
	RawText string // text rendered for embedding
}

// IsExpense reports whether the transaction is money out.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// DirectionOf derives the direction flag from a signed amount.
func DirectionOf(amount decimal.Decimal) Direction {
	if amount.IsNegative() {
		return DirectionExpense
	}
	return DirectionIncome
}

// NewTransactionID derives a stable identifier from the logical identity of a
// transaction. Re-ingesting the same date+description+amount always produces
// the same id, which makes index upserts idempotent. The id is a name-based
// UUID so the vector index accepts it verbatim as a point id.
func NewTransactionID(date time.Time, description string, amount decimal.Decimal) string {
	sum := sha256.Sum256([]byte(date.Format("2006-01-02") + "|" + description + "|" + amount.String()))
	return uuid.NewSHA1(uuid.NameSpaceOID, sum[:]).String()
}

// Category is one entry of the keyword taxonomy. Keyword order is priority
// order: earlier keywords break ties between equally long matches.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Icon     string   `yaml:"icon"`
}
