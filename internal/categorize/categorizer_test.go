package categorize

import (
	"testing"

	"github.com/finleyapp/finance-advisor/internal/config"
	"github.com/finleyapp/finance-advisor/internal/domain"
)

func TestCategorize_DefaultTaxonomy(t *testing.T) {
	c := New(config.DefaultCategories())

	tests := []struct {
		description    string
		wantCategory   string
		wantConfidence domain.Confidence
	}{
		{"STARBUCKS #1234", "Dining", domain.ConfidencePartial},
		{"NETFLIX.COM", "Subscriptions", domain.ConfidencePartial},
		{"netflix", "Subscriptions", domain.ConfidenceExact},
		{"WHOLE FOODS MKT 103", "Groceries", domain.ConfidencePartial},
		{"UBER EATS PENDING", "Food Delivery", domain.ConfidencePartial},
		{"UBER *TRIP 53A", "Transportation", domain.ConfidencePartial},
		{"ACME CORP PAYROLL", "Income", domain.ConfidencePartial},
		{"QUANTUM FLUX LABS", "Uncategorized", domain.ConfidenceFallback},
		{"", "Uncategorized", domain.ConfidenceFallback},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			got, conf := c.Categorize(tt.description)
			if got != tt.wantCategory {
				t.Errorf("Categorize(%q) category = %q, want %q", tt.description, got, tt.wantCategory)
			}
			if conf != tt.wantConfidence {
				t.Errorf("Categorize(%q) confidence = %q, want %q", tt.description, conf, tt.wantConfidence)
			}
		})
	}
}

func TestCategorize_ExactKeywordIsExact(t *testing.T) {
	c := New(config.DefaultCategories())

	// Every declared keyword, used verbatim as a description, must come
	// back as an exact match owned by its category.
	for _, cat := range config.DefaultCategories() {
		for _, kw := range cat.Keywords {
			got, conf := c.Categorize(kw)
			if got != cat.Name {
				t.Errorf("Categorize(%q) = %q, want %q", kw, got, cat.Name)
			}
			if conf != domain.ConfidenceExact {
				t.Errorf("Categorize(%q) confidence = %q, want exact", kw, conf)
			}
		}
	}
}

func TestCategorize_LongestMatchWins(t *testing.T) {
	// Transportation declared first so a naive first-match would claim
	// "UBER EATS" for it.
	cats := []domain.Category{
		{Name: "Transportation", Keywords: []string{"uber"}},
		{Name: "Food Delivery", Keywords: []string{"uber eats"}},
	}

	c := New(cats)
	got, _ := c.Categorize("UBER EATS ORDER 99")
	if got != "Food Delivery" {
		t.Errorf("longest match: got %q, want Food Delivery", got)
	}

	first := NewWithOptions(cats, Options{FirstMatch: true})
	got, _ = first.Categorize("UBER EATS ORDER 99")
	if got != "Transportation" {
		t.Errorf("first match option: got %q, want Transportation", got)
	}
}

func TestCategorize_EqualLengthTieGoesToDeclarationOrder(t *testing.T) {
	cats := []domain.Category{
		{Name: "A", Keywords: []string{"abcd"}},
		{Name: "B", Keywords: []string{"wxyz"}},
	}
	c := New(cats)
	got, _ := c.Categorize("abcd wxyz")
	if got != "A" {
		t.Errorf("tie: got %q, want A", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"NETFLIX.COM", "netflix com"},
		{"STARBUCKS #1234", "starbucks 1234"},
		{"  Uber   *Trip ", "uber trip"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContains_WordBoundaries(t *testing.T) {
	c := New([]domain.Category{{Name: "Housing", Keywords: []string{"rent"}}})

	if got, _ := c.Categorize("RENT PAYMENT MARCH"); got != "Housing" {
		t.Errorf("got %q, want Housing", got)
	}
	// "parents" must not be claimed by "rent": no word boundary on either side.
	if got, conf := c.Categorize("GIFT FOR PARENTS"); got != FallbackCategory || conf != domain.ConfidenceFallback {
		t.Errorf("got %q/%q, want fallback", got, conf)
	}
	// "current" ends in "rent" but only one side sits on a boundary.
	if got, conf := c.Categorize("CURRENT ACCOUNT FEE"); got != FallbackCategory || conf != domain.ConfidenceFallback {
		t.Errorf("got %q/%q, want fallback", got, conf)
	}
	// A later occurrence on clean boundaries must still match.
	if got, _ := c.Categorize("CURRENT RENT CHARGE"); got != "Housing" {
		t.Errorf("got %q, want Housing", got)
	}
}
