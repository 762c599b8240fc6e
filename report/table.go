// Package report presents run outcomes as terminal tables and file exports.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aluiziolira/go-scrape-stock/models"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// RenderOutcomes writes a summary row per brand, then one table of
// unavailable listings per brand that has any.
func RenderOutcomes(w io.Writer, outcomes []models.BrandOutcome) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Brand", "Status", "Records", "Out of stock", "Detail"})
	for _, o := range outcomes {
		detail := o.Detail
		if o.Failure != models.FailureNone {
			detail = fmt.Sprintf("%s: %s", o.Failure, o.Detail)
		}
		if o.QueryError != "" {
			detail = fmt.Sprintf("%s (query: %s)", detail, o.QueryError)
		}
		t.AppendRow(table.Row{o.Brand, o.Status, o.Count, len(o.OutOfStock), detail})
	}
	t.Render()

	for _, o := range outcomes {
		if len(o.OutOfStock) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", o.Brand)
		RenderRecords(w, o.OutOfStock)
	}
}

// RenderRecords writes ledger rows as a table.
func RenderRecords(w io.Writer, records []models.ProductRecord) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Product", "Price", "Quantity", "Seen", "Availability", "URL"})
	for _, r := range records {
		t.AppendRow(table.Row{r.ProductName, r.Price, r.Quantity, r.Timestamp.Format(models.TimestampLayout), r.StockStatus, r.ProductURL})
	}
	t.Render()
}

// RenderBrands writes registry entries as a table.
func RenderBrands(w io.Writer, entries []models.BrandEntry) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Brand", "Storefront"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Name, e.StorefrontURL})
	}
	t.Render()
}
