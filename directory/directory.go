// Package directory maps brand names to storefront URLs using the brand
// registry range.
package directory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-stock/models"
	"github.com/aluiziolira/go-scrape-stock/sheet"
)

const (
	ColName = "Brand Name"
	ColURL  = "Brand URL"
)

// SuggestThreshold is the minimum similarity for a brand to be suggested.
const SuggestThreshold = 0.85

// Header is the registry header row.
var Header = []string{ColName, ColURL}

var (
	// ErrMalformedRegistry means the registry header lacks the expected columns.
	ErrMalformedRegistry = errors.New("registry header must contain \"Brand Name\" and \"Brand URL\"")
	// ErrDuplicateBrand is returned when registering a name that already exists.
	ErrDuplicateBrand = errors.New("brand already registered")
)

// Directory is an immutable snapshot of the registry plus a fallback rule
// for brands it does not list.
type Directory struct {
	table    sheet.Table
	template string

	mu      sync.RWMutex
	entries []models.BrandEntry
	byName  map[string]models.BrandEntry

	suggestions *lru.Cache[string, []suggestion]
}

// Load reads the registry from table. Fewer than two rows is an empty
// directory. template must contain "{brand}".
func Load(ctx context.Context, table sheet.Table, template string, cacheSize int) (*Directory, error) {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[string, []suggestion](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create suggestion cache: %w", err)
	}

	values, err := table.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	d := &Directory{
		table:       table,
		template:    template,
		byName:      make(map[string]models.BrandEntry),
		suggestions: cache,
	}
	if len(values) < 2 {
		return d, nil
	}

	index := sheet.HeaderIndex(values[0])
	nameCol, okName := index[ColName]
	urlCol, okURL := index[ColURL]
	if !okName || !okURL {
		return nil, ErrMalformedRegistry
	}

	for _, row := range values[1:] {
		entry := models.BrandEntry{
			Name:          sheet.Cell(row, nameCol),
			StorefrontURL: strings.TrimSpace(sheet.Cell(row, urlCol)),
		}
		if entry.Name == "" || entry.Name == ColName {
			continue
		}
		d.add(entry)
	}
	return d, nil
}

func (d *Directory) add(entry models.BrandEntry) bool {
	if _, ok := d.byName[entry.Name]; ok {
		return false
	}
	d.byName[entry.Name] = entry
	d.entries = append(d.entries, entry)
	return true
}

// Lookup finds name exactly, case-sensitive.
func (d *Directory) Lookup(name string) (models.BrandEntry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.byName[name]
	return entry, ok
}

// Resolve returns the registry entry for name, or one synthesised from the
// fallback template when the registry has none (or lists no URL).
func (d *Directory) Resolve(name string) models.BrandEntry {
	entry, ok := d.Lookup(name)
	if !ok || entry.StorefrontURL == "" {
		entry = models.BrandEntry{Name: name, StorefrontURL: FallbackURL(d.template, name)}
	}
	return entry
}

// FallbackURL lowercases name and substitutes it into template.
func FallbackURL(template, name string) string {
	slug := url.PathEscape(strings.ToLower(strings.TrimSpace(name)))
	return strings.ReplaceAll(template, "{brand}", slug)
}

// Entries returns the brands in registry order.
func (d *Directory) Entries() []models.BrandEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.entries)
}

// Match returns entries whose name contains substr, ignoring case. An
// empty substr matches everything.
func (d *Directory) Match(substr string) []models.BrandEntry {
	needle := strings.ToLower(strings.TrimSpace(substr))
	var out []models.BrandEntry
	for _, entry := range d.Entries() {
		if strings.Contains(strings.ToLower(entry.Name), needle) {
			out = append(out, entry)
		}
	}
	return out
}

// Register appends entry to the registry and the in-memory snapshot.
func (d *Directory) Register(ctx context.Context, entry models.BrandEntry) error {
	entry.Name = strings.TrimSpace(entry.Name)
	entry.StorefrontURL = strings.TrimSpace(entry.StorefrontURL)
	if entry.Name == "" {
		return fmt.Errorf("brand name cannot be empty")
	}
	parsed, err := url.Parse(entry.StorefrontURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("brand url %q must be absolute", entry.StorefrontURL)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byName[entry.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBrand, entry.Name)
	}

	values, err := d.table.Values(ctx)
	if err != nil {
		return fmt.Errorf("read registry: %w", err)
	}
	var rows [][]string
	if len(values) == 0 {
		rows = append(rows, slices.Clone(Header))
	}
	rows = append(rows, []string{entry.Name, entry.StorefrontURL})
	if err := d.table.Append(ctx, rows); err != nil {
		return fmt.Errorf("append registry: %w", err)
	}

	d.add(entry)
	d.suggestions.Purge()
	return nil
}

type suggestion struct {
	entry models.BrandEntry
	score float64
}

// Suggest returns up to limit registered brands whose names are close to
// name by Jaro-Winkler similarity (case-insensitive), best first. Rankings
// are memoised per name until the registry changes.
func (d *Directory) Suggest(name string, limit int) []models.BrandEntry {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || limit <= 0 {
		return nil
	}

	ranked, ok := d.suggestions.Get(key)
	if !ok {
		for _, entry := range d.Entries() {
			score := matchr.JaroWinkler(key, strings.ToLower(entry.Name), false)
			if score >= SuggestThreshold {
				ranked = append(ranked, suggestion{entry: entry, score: score})
			}
		}
		slices.SortStableFunc(ranked, func(a, b suggestion) int {
			return cmp.Compare(b.score, a.score)
		})
		d.suggestions.Add(key, ranked)
	}

	out := make([]models.BrandEntry, 0, min(limit, len(ranked)))
	for _, s := range ranked[:min(limit, len(ranked))] {
		out = append(out, s.entry)
	}
	return out
}
