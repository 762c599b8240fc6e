package parser

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/aluiziolira/go-scrape-stock/models"
)

func buildStorefrontPage(grid string, ids []int, unavailable map[int]bool) string {
	var builder strings.Builder
	builder.WriteString("<html><body>")
	fmt.Fprintf(&builder, "<section class=%q>", grid)
	for _, id := range ids {
		builder.WriteString(`<div class="SKUDeck___StyledDiv-sc-1e5d9gk-0 eA-dmzP">`)
		fmt.Fprintf(&builder, `<a href="/pd/%d/item-%d/"><h3 class="line-clamp-2">Item %d</h3></a>`, id, id, id)
		fmt.Fprintf(&builder, `<span class="Pricing___StyledLabel-sc-pldi2d-1">₹%d</span>`, id*10)
		fmt.Fprintf(&builder, `<div class="py-1.5 xl:py-1">%d g</div>`, id*100)
		if unavailable[id] {
			builder.WriteString(`<span class="Tags___StyledLabel2-sc-aeruf4-1">Currently unavailable</span>`)
		}
		builder.WriteString("</div>")
	}
	builder.WriteString("</section></body></html>")
	return builder.String()
}

func TestListingParserDocumentOrder(t *testing.T) {
	page := buildStorefrontPage("grid", []int{3, 1, 2}, map[int]bool{1: true})

	p := NewListingParser(DefaultLocators())
	p.Now = func() time.Time { return fixedNow }

	records, err := p.Parse("Fresho", "https://example.test/pb/fresho/", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	stamp := fixedNow.Truncate(time.Second)
	want := []models.ProductRecord{
		{Brand: "Fresho", ProductName: "Item 3", Price: "₹30", Quantity: "300 g", Timestamp: stamp, StockStatus: models.InStock, ProductURL: "https://example.test/pd/3/item-3/"},
		{Brand: "Fresho", ProductName: "Item 1", Price: "₹10", Quantity: "100 g", Timestamp: stamp, StockStatus: models.OutOfStock, ProductURL: "https://example.test/pd/1/item-1/"},
		{Brand: "Fresho", ProductName: "Item 2", Price: "₹20", Quantity: "200 g", Timestamp: stamp, StockStatus: models.InStock, ProductURL: "https://example.test/pd/2/item-2/"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestListingParserEmptyPage(t *testing.T) {
	p := NewListingParser(DefaultLocators())

	records, err := p.Parse("Fresho", "https://example.test/", []byte(`<html><body><div id="__next"></div></body></html>`))
	if err != nil {
		t.Fatalf("empty page should not be an error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("records=%v, want empty non-nil slice", records)
	}
}

func TestListingParserGridScope(t *testing.T) {
	page := buildStorefrontPage("main-grid", []int{1, 2}, nil) +
		buildStorefrontPage("similar-products", []int{9}, nil)

	tests := []struct {
		name string
		grid string
		want int
	}{
		{name: "unscoped visits every grid", grid: "", want: 3},
		{name: "scoped to main grid", grid: "section.main-grid", want: 2},
		{name: "missing grid", grid: "section.nope", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locators := DefaultLocators()
			locators.Grid = tt.grid
			records, err := NewListingParser(locators).Parse("B", "https://example.test/", []byte(page))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(records) != tt.want {
				t.Fatalf("records=%d, want %d", len(records), tt.want)
			}
		})
	}
}

func TestMissingFields(t *testing.T) {
	r := models.ProductRecord{
		ProductName: "Item",
		Price:       models.Sentinel,
		Quantity:    "1 kg",
		ProductURL:  models.Sentinel,
	}
	if diff := cmp.Diff([]string{"price", "product_url"}, MissingFields(r)); diff != "" {
		t.Fatalf("missing fields (-want +got):\n%s", diff)
	}
}

func TestLocatorsMergeAndValidate(t *testing.T) {
	merged := DefaultLocators().Merge(Locators{Grid: "section.grid", Price: []string{" ", "span.p"}})
	if merged.Grid != "section.grid" {
		t.Fatalf("grid=%q", merged.Grid)
	}
	if diff := cmp.Diff([]string{"span.p"}, merged.Price); diff != "" {
		t.Fatalf("price chain (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultLocators().Name, merged.Name); diff != "" {
		t.Fatalf("name chain should be untouched (-want +got):\n%s", diff)
	}
	if err := merged.Validate(); err != nil {
		t.Fatalf("merged locators should validate: %v", err)
	}

	broken := DefaultLocators()
	broken.Link = []string{""}
	if err := broken.Validate(); err == nil || !strings.Contains(err.Error(), "link") {
		t.Fatalf("expected link validation error, got %v", err)
	}
}
