package notion

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/finleyapp/finance-advisor/internal/domain"
)

// TransactionProperties maps a transaction to the Notion database schema:
// Description (title), Date, Amount, Category, Direction, Confidence,
// Transaction ID, Source File. The Transaction ID property carries the
// stable id used for idempotent re-syncs.
func TransactionProperties(tx domain.Transaction) notionapi.Properties {
	date := notionapi.Date(time.Date(
		tx.Date.Year(), tx.Date.Month(), tx.Date.Day(), 0, 0, 0, 0, time.UTC))

	props := notionapi.Properties{
		"Description": notionapi.TitleProperty{
			Title: richText(tx.Description),
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		"Amount": notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		"Direction": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Direction)},
		},
		"Transaction ID": notionapi.RichTextProperty{
			RichText: richText(tx.ID),
		},
	}

	if tx.Category != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Category},
		}
	}
	if tx.CategoryConfidence != "" {
		props["Confidence"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.CategoryConfidence)},
		}
	}
	if tx.FileID != "" {
		props["Source File"] = notionapi.RichTextProperty{
			RichText: richText(tx.FileID),
		}
	}
	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

// pageTransactionID extracts the stable transaction id from an exported page.
// Returns empty for pages that predate the Transaction ID property.
func pageTransactionID(page notionapi.Page) string {
	prop, ok := page.Properties["Transaction ID"]
	if !ok {
		return ""
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}
	return rt.RichText[0].PlainText
}
