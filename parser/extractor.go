// Package parser turns storefront markup into product records.
package parser

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-stock/models"
)

// Fields holds the six values pulled out of one listing fragment.
type Fields struct {
	ProductName string
	Price       string
	Quantity    string
	StockStatus models.StockStatus
	ProductURL  string
	Timestamp   time.Time
}

// Extractor pulls fields out of listing fragments for one storefront.
// Every field degrades to its sentinel independently; Extract never fails.
type Extractor struct {
	locators Locators
	origin   *url.URL
	Now      func() time.Time
}

// NewExtractor builds an extractor resolving links against the origin of
// storefrontURL.
func NewExtractor(locators Locators, storefrontURL string) *Extractor {
	return &Extractor{
		locators: locators,
		origin:   originOf(storefrontURL),
		Now:      time.Now,
	}
}

// Extract reads one fragment. A stock tag being present marks the listing
// out of stock regardless of its text; no tag means in stock.
func (e *Extractor) Extract(fragment *goquery.Selection) Fields {
	fields := Fields{
		ProductName: models.Sentinel,
		Price:       models.Sentinel,
		Quantity:    models.Sentinel,
		StockStatus: models.InStock,
		ProductURL:  models.Sentinel,
	}

	guard(func() { fields.ProductName = e.text(fragment, e.locators.Name) })
	guard(func() { fields.Price = e.text(fragment, e.locators.Price) })
	guard(func() { fields.Quantity = e.text(fragment, e.locators.Quantity) })
	guard(func() {
		if firstMatch(fragment, e.locators.Stock) != nil {
			fields.StockStatus = models.OutOfStock
		}
	})
	guard(func() { fields.ProductURL = e.link(fragment) })

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	fields.Timestamp = now().Truncate(time.Second)
	return fields
}

func (e *Extractor) text(fragment *goquery.Selection, chain []string) string {
	found := firstMatch(fragment, chain)
	if found == nil {
		return models.Sentinel
	}
	if text := NormalizeText(found.First().Text()); text != "" {
		return text
	}
	return models.Sentinel
}

func (e *Extractor) link(fragment *goquery.Selection) string {
	found := firstMatch(fragment, e.locators.Link)
	if found == nil {
		return models.Sentinel
	}
	href, ok := found.First().Attr("href")
	if !ok {
		return models.Sentinel
	}
	return ResolveURL(e.origin, href)
}

// ResolveURL joins href onto origin. Absolute hrefs are kept as-is; empty or
// unparsable hrefs, or relative ones without an origin, yield the sentinel.
func ResolveURL(origin *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return models.Sentinel
	}
	ref, err := url.Parse(href)
	if err != nil {
		return models.Sentinel
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if origin == nil {
		return models.Sentinel
	}
	return origin.ResolveReference(ref).String()
}

func originOf(raw string) *url.URL {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil
	}
	return &url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/"}
}

// guard keeps a misbehaving lookup from escaping the extractor; the field
// keeps whatever default it already holds.
func guard(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
