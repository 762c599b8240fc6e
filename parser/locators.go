package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Locators names the selector chain used for each field. Selectors in a
// chain are tried in order and the first one that matches inside the
// fragment wins, so markup drift is absorbed by adding selectors.
type Locators struct {
	// Grid optionally scopes listing lookup to a wrapper element. Empty
	// means every listing fragment in the document is visited.
	Grid     string   `yaml:"grid"`
	Listing  []string `yaml:"listing"`
	Name     []string `yaml:"name"`
	Price    []string `yaml:"price"`
	Quantity []string `yaml:"quantity"`
	Stock    []string `yaml:"stock"`
	Link     []string `yaml:"link"`
}

// DefaultLocators matches the storefront product deck markup.
func DefaultLocators() Locators {
	return Locators{
		Listing: []string{
			`div[class*="SKUDeck___StyledDiv"]`,
			`li[class*="PaginateItems"] > div`,
		},
		Name: []string{
			`h3[class*="line-clamp-2"]`,
			`h3`,
		},
		Price: []string{
			`span[class*="Pricing___StyledLabel-"]`,
			`span[class*="Pricing___StyledLabel"]`,
		},
		Quantity: []string{
			`div[class~="py-1.5"]`,
			`span[class*="PackSelector"]`,
		},
		Stock: []string{
			`span[class*="Tags___StyledLabel2"]`,
		},
		Link: []string{
			`a[href]`,
		},
	}
}

// Validate rejects chains that can never match.
func (l Locators) Validate() error {
	chains := []struct {
		name  string
		chain []string
	}{
		{"listing", l.Listing},
		{"name", l.Name},
		{"price", l.Price},
		{"quantity", l.Quantity},
		{"stock", l.Stock},
		{"link", l.Link},
	}
	for _, c := range chains {
		if len(compact(c.chain)) == 0 {
			return fmt.Errorf("locator %s needs at least one selector", c.name)
		}
	}
	return nil
}

// Merge overlays non-empty chains from override onto l.
func (l Locators) Merge(override Locators) Locators {
	if strings.TrimSpace(override.Grid) != "" {
		l.Grid = override.Grid
	}
	pick := func(base, over []string) []string {
		if len(compact(over)) > 0 {
			return compact(over)
		}
		return base
	}
	l.Listing = pick(l.Listing, override.Listing)
	l.Name = pick(l.Name, override.Name)
	l.Price = pick(l.Price, override.Price)
	l.Quantity = pick(l.Quantity, override.Quantity)
	l.Stock = pick(l.Stock, override.Stock)
	l.Link = pick(l.Link, override.Link)
	return l
}

func firstMatch(scope *goquery.Selection, chain []string) *goquery.Selection {
	if scope == nil {
		return nil
	}
	for _, selector := range chain {
		if strings.TrimSpace(selector) == "" {
			continue
		}
		if found := scope.Find(selector); found.Length() > 0 {
			return found
		}
	}
	return nil
}

func compact(chain []string) []string {
	out := make([]string, 0, len(chain))
	for _, selector := range chain {
		if s := strings.TrimSpace(selector); s != "" {
			out = append(out, s)
		}
	}
	return out
}
