// Package sheet provides tabular ranges backed by CSV files or SQL tables.
// A range is an ordered list of rows; the first row is conventionally the
// header. Rows are only ever appended at the end.
package sheet

import "context"

// Table is an append-only tabular range.
type Table interface {
	// Values returns every row in append order. A range that was never
	// written returns no rows and no error.
	Values(ctx context.Context) ([][]string, error)
	// Append adds rows at the end of the range.
	Append(ctx context.Context, rows [][]string) error
}

// HeaderIndex maps column names of header to their positions. Later
// duplicates do not override earlier ones.
func HeaderIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	return index
}

// Cell returns row[i], or "" when the row is shorter than i.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
