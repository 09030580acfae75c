// Package source reads raw transaction records from their upload formats.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one raw transaction row before categorization.
type Record struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
}

// Date layouts accepted in CSV exports, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02 Jan 2006",
	"Jan 2, 2006",
}

// ReadCSV parses a transaction CSV with columns date, description, amount.
// A header row is detected and skipped. Negative amounts are expenses,
// positive amounts income. Rows that cannot be parsed fail the whole read:
// a malformed statement should be fixed, not half-imported.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var records []Record
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: line %d: %w", line+1, err)
		}
		line++

		if len(row) < 3 {
			return nil, fmt.Errorf("ReadCSV: line %d: want 3 columns (date, description, amount), got %d", line, len(row))
		}
		if line == 1 && isHeader(row) {
			continue
		}

		date, err := parseDate(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: line %d: %w", line, err)
		}
		desc := strings.TrimSpace(row[1])
		if desc == "" {
			return nil, fmt.Errorf("ReadCSV: line %d: empty description", line)
		}
		amount, err := parseAmount(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: line %d: %w", line, err)
		}

		records = append(records, Record{Date: date, Description: desc, Amount: amount})
	}
	return records, nil
}

func isHeader(row []string) bool {
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return first == "date" || first == "transaction date" || first == "posted date"
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ",", "")
	// Bank exports sometimes wrap negatives in parentheses.
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.ReplaceAll(s, "$", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad amount %q", s)
	}
	return d, nil
}
