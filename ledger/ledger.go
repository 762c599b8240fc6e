// Package ledger persists product records into an append-only historical
// range and answers availability queries over it.
//
// Writes are append-at-end only. The store serialises its own callers, but
// nothing coordinates separate processes: run at most one writer per
// ledger at a time.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-stock/models"
	"github.com/aluiziolira/go-scrape-stock/sheet"
)

// Column names of the ledger header, in record field order.
const (
	ColBrand       = "Brand"
	ColProductName = "Product Name"
	ColPrice       = "Price"
	ColQuantity    = "Quantity"
	ColTimestamp   = "Timestamp"
	ColStock       = "Stock Availability"
	ColProductURL  = "Product URL"
)

// Header is written exactly once, as the first row of an empty ledger.
var Header = []string{ColBrand, ColProductName, ColPrice, ColQuantity, ColTimestamp, ColStock, ColProductURL}

// ErrHeaderMismatch means the first row of a non-empty ledger is not Header.
var ErrHeaderMismatch = errors.New("ledger header mismatch")

// PersistenceError wraps failures of the backing range.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Errorf("ledger %s: %w", e.Op, e.Err).Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// StatusFilter selects which rows count as unavailable.
type StatusFilter int

const (
	// FilterNotInStock keeps rows whose status cell is anything but "In Stock",
	// including legacy labels such as "Currently unavailable".
	FilterNotInStock StatusFilter = iota
	// FilterOutOfStock keeps rows labelled "Out of Stock" only.
	FilterOutOfStock
)

// ParseFilter maps a config value to a StatusFilter.
func ParseFilter(value string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "not-in-stock":
		return FilterNotInStock, nil
	case "out-of-stock":
		return FilterOutOfStock, nil
	default:
		return 0, fmt.Errorf("unknown status filter %q", value)
	}
}

func (f StatusFilter) match(cell string) bool {
	if f == FilterOutOfStock {
		return strings.EqualFold(strings.TrimSpace(cell), models.OutOfStock.String())
	}
	return cell != models.InStock.String()
}

// Store is the ledger over a sheet.Table.
type Store struct {
	table sheet.Table
	mu    sync.Mutex
	loc   *time.Location
}

// NewStore wraps table.
func NewStore(table sheet.Table) *Store {
	return &Store{table: table, loc: time.Local}
}

// Append adds records in order. The header goes in front of the first
// batch ever written; later batches carry data rows only.
func (s *Store) Append(ctx context.Context, records []models.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.table.Values(ctx)
	if err != nil {
		return &PersistenceError{Op: "read", Err: err}
	}

	rows := make([][]string, 0, len(records)+1)
	if len(values) == 0 {
		rows = append(rows, slices.Clone(Header))
	} else if !slices.Equal(values[0], Header) {
		return &PersistenceError{Op: "append", Err: fmt.Errorf("%w: found %v", ErrHeaderMismatch, values[0])}
	}
	for _, record := range records {
		rows = append(rows, Row(record))
	}

	if err := s.table.Append(ctx, rows); err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}
	return nil
}

// Query returns brand's rows matching filter, in ledger order. An empty or
// header-only ledger, or one missing the brand or stock columns, yields no rows.
func (s *Store) Query(ctx context.Context, brand string, filter StatusFilter) ([]models.ProductRecord, error) {
	return s.scan(ctx, func(index map[string]int, row []string) bool {
		return sheet.Cell(row, index[ColBrand]) == brand && filter.match(sheet.Cell(row, index[ColStock]))
	})
}

// History returns every row recorded for brand.
func (s *Store) History(ctx context.Context, brand string) ([]models.ProductRecord, error) {
	return s.scan(ctx, func(index map[string]int, row []string) bool {
		return sheet.Cell(row, index[ColBrand]) == brand
	})
}

func (s *Store) scan(ctx context.Context, keep func(map[string]int, []string) bool) ([]models.ProductRecord, error) {
	values, err := s.table.Values(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "query", Err: err}
	}

	out := make([]models.ProductRecord, 0)
	if len(values) < 2 {
		return out, nil
	}
	index := sheet.HeaderIndex(values[0])
	if _, ok := index[ColBrand]; !ok {
		return out, nil
	}
	if _, ok := index[ColStock]; !ok {
		return out, nil
	}

	for _, row := range values[1:] {
		// ledgers written by older tooling repeat the header on every batch
		if slices.Equal(row, values[0]) {
			continue
		}
		if keep(index, row) {
			out = append(out, s.record(index, row))
		}
	}
	return out, nil
}

// Row renders r as ledger cells in Header order.
func Row(r models.ProductRecord) []string {
	return []string{
		r.Brand,
		r.ProductName,
		r.Price,
		r.Quantity,
		r.Timestamp.Format(models.TimestampLayout),
		r.StockStatus.String(),
		r.ProductURL,
	}
}

func (s *Store) record(index map[string]int, row []string) models.ProductRecord {
	cell := func(name string) string {
		i, ok := index[name]
		if !ok {
			return models.Sentinel
		}
		return sheet.Cell(row, i)
	}

	stamp, err := time.ParseInLocation(models.TimestampLayout, cell(ColTimestamp), s.loc)
	if err != nil {
		stamp = time.Time{}
	}
	return models.ProductRecord{
		Brand:       cell(ColBrand),
		ProductName: cell(ColProductName),
		Price:       cell(ColPrice),
		Quantity:    cell(ColQuantity),
		Timestamp:   stamp,
		StockStatus: models.ParseStockStatus(cell(ColStock)),
		ProductURL:  cell(ColProductURL),
	}
}
