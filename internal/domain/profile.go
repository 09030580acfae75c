package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrackedFile records one ingested source file so re-uploads can be detected.
type TrackedFile struct {
	FileID           string    `json:"file_id"`
	Filename         string    `json:"filename"`
	TransactionCount int       `json:"transaction_count"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// Profile holds per-user state. It is created on first use and mutated by
// ingestion and settings updates; it is never implicitly deleted.
type Profile struct {
	MonthlyIncome decimal.Decimal   `json:"monthly_income"`
	TrackedFiles  []TrackedFile     `json:"tracked_files"`
	Settings      map[string]string `json:"settings"`
}

// HasIncome reports whether a usable monthly income has been configured.
func (p Profile) HasIncome() bool {
	return p.MonthlyIncome.IsPositive()
}
