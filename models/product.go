// Package models defines data structures shared by the tracker packages.
package models

import (
	"strings"
	"time"
)

// Sentinel is stored in place of any field that could not be extracted.
const Sentinel = "N/A"

// TimestampLayout is the ledger representation of ProductRecord.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// StockStatus is the normalised availability of a listing.
type StockStatus int

const (
	InStock StockStatus = iota
	OutOfStock
)

// String returns the ledger label for the status.
func (s StockStatus) String() string {
	if s == OutOfStock {
		return "Out of Stock"
	}
	return "In Stock"
}

// MarshalText lets the status travel as its label in JSON.
func (s StockStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStockStatus maps a raw label to a status. Anything other than an
// "in stock" label counts as unavailable, so "Currently unavailable" and
// "Out of Stock" both normalise to OutOfStock.
func ParseStockStatus(label string) StockStatus {
	if strings.EqualFold(strings.TrimSpace(label), InStock.String()) {
		return InStock
	}
	return OutOfStock
}

// BrandEntry is one row of the brand registry.
type BrandEntry struct {
	Name          string `json:"name"`
	StorefrontURL string `json:"storefront_url"`
}

// ProductRecord is one scraped listing. Field order matches the ledger columns.
type ProductRecord struct {
	Brand       string      `json:"brand"`
	ProductName string      `json:"product_name"`
	Price       string      `json:"price"`
	Quantity    string      `json:"quantity"`
	Timestamp   time.Time   `json:"timestamp"`
	StockStatus StockStatus `json:"stock_status"`
	ProductURL  string      `json:"product_url"`
}
