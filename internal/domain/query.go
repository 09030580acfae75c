package domain

import "time"

// DateRange is an inclusive date window. A zero From or To leaves that end
// unbounded.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Filters are structured constraints derived heuristically from query text.
type Filters struct {
	Range    *DateRange `json:"range,omitempty"`
	Category string     `json:"category,omitempty"`
}

// Empty reports whether no filter was extracted.
func (f Filters) Empty() bool {
	return f.Range == nil && f.Category == ""
}

// Query is a natural-language question plus the filters extracted from it.
type Query struct {
	Text    string  `json:"text"`
	Filters Filters `json:"filters"`
}

// RetrievalResult pairs a transaction with its similarity score. Higher
// scores are more relevant; result slices are ordered by descending score
// with ties broken by more recent date.
type RetrievalResult struct {
	Transaction Transaction
	Score       float64
}
