package source

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestReadCSV_HeaderAndFormats(t *testing.T) {
	in := strings.Join([]string{
		"date,description,amount",
		"2024-03-01,STARBUCKS #1234,-6.75",
		`03/05/2024,"WHOLEFDS MKT, AUSTIN","-1,088.10"`,
		"2024-03-15,PAYROLL ACME CORP,2500.00",
		"2024-03-20,REFUND AMAZON,($12.00)",
	}, "\n")

	records, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("len = %d, want 4", len(records))
	}

	if records[0].Description != "STARBUCKS #1234" {
		t.Errorf("description = %q", records[0].Description)
	}
	if !records[1].Amount.Equal(decimal.RequireFromString("-1088.10")) {
		t.Errorf("comma amount = %s", records[1].Amount)
	}
	if records[1].Date.Format("2006-01-02") != "2024-03-05" {
		t.Errorf("slash date = %s", records[1].Date)
	}
	if !records[2].Amount.IsPositive() {
		t.Errorf("income amount should stay positive: %s", records[2].Amount)
	}
	if !records[3].Amount.Equal(decimal.RequireFromString("-12.00")) {
		t.Errorf("parenthesized amount = %s", records[3].Amount)
	}
}

func TestReadCSV_NoHeader(t *testing.T) {
	records, err := ReadCSV(strings.NewReader("2024-03-01,COFFEE,-3.50\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
}

func TestReadCSV_Malformed(t *testing.T) {
	tests := []struct {
		name, in string
	}{
		{"bad date", "date,description,amount\nnot-a-date,COFFEE,-3.50\n"},
		{"bad amount", "2024-03-01,COFFEE,three fifty\n"},
		{"missing column", "2024-03-01,COFFEE\n"},
		{"empty description", "2024-03-01,,-3.50\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
