package parser

import (
	"strings"

	"github.com/aluiziolira/go-scrape-stock/models"
)

// NormalizeText collapses runs of whitespace and trims the result.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// MissingFields lists the fields of r that hold the sentinel.
func MissingFields(r models.ProductRecord) []string {
	var missing []string
	if r.ProductName == models.Sentinel {
		missing = append(missing, "product_name")
	}
	if r.Price == models.Sentinel {
		missing = append(missing, "price")
	}
	if r.Quantity == models.Sentinel {
		missing = append(missing, "quantity")
	}
	if r.ProductURL == models.Sentinel {
		missing = append(missing, "product_url")
	}
	return missing
}
