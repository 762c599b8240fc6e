package parser

import (
	"bytes"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-stock/models"
)

// EmptyWarning is surfaced when a page yields no listings.
const EmptyWarning = "no products found, page may require dynamic rendering"

// ListingParser maps the Extractor over every listing fragment of a page.
type ListingParser struct {
	locators Locators
	Now      func() time.Time
}

// NewListingParser returns a parser using the given locators.
func NewListingParser(locators Locators) *ListingParser {
	return &ListingParser{locators: locators, Now: time.Now}
}

// Parse returns one record per listing fragment in document order. A page
// without fragments yields an empty slice and no error.
func (p *ListingParser) Parse(brand, storefrontURL string, body []byte) ([]models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	fragments := p.fragments(doc)
	records := make([]models.ProductRecord, 0, fragments.Length())
	if fragments.Length() == 0 {
		return records, nil
	}

	extractor := NewExtractor(p.locators, storefrontURL)
	extractor.Now = p.Now

	fragments.Each(func(_ int, fragment *goquery.Selection) {
		fields := extractor.Extract(fragment)
		records = append(records, models.ProductRecord{
			Brand:       brand,
			ProductName: fields.ProductName,
			Price:       fields.Price,
			Quantity:    fields.Quantity,
			Timestamp:   fields.Timestamp,
			StockStatus: fields.StockStatus,
			ProductURL:  fields.ProductURL,
		})
	})
	return records, nil
}

func (p *ListingParser) fragments(doc *goquery.Document) *goquery.Selection {
	scope := doc.Selection
	if p.locators.Grid != "" {
		scope = doc.Find(p.locators.Grid)
	}
	if found := firstMatch(scope, p.locators.Listing); found != nil {
		return found
	}
	return &goquery.Selection{}
}
