package sheet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-scrape-stock/config"
)

func openBackends(t *testing.T) map[string]func(name string) Table {
	t.Helper()

	db, err := OpenSQL(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	return map[string]func(string) Table{
		"csv": func(name string) Table {
			return NewCSVTable(filepath.Join(dir, "nested", name+".csv"))
		},
		"sqlite": func(name string) Table {
			return NewSQLTable(db, "sqlite", name)
		},
	}
}

func TestTableAppendAndValues(t *testing.T) {
	for backend, open := range openBackends(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			table := open("ledger")

			values, err := table.Values(ctx)
			require.NoError(t, err)
			require.Empty(t, values)

			require.NoError(t, table.Append(ctx, [][]string{{"a", "b"}, {"1", "2, with comma"}}))
			require.NoError(t, table.Append(ctx, nil))
			require.NoError(t, table.Append(ctx, [][]string{{"3", "line\nbreak", "extra"}}))

			values, err = table.Values(ctx)
			require.NoError(t, err)
			require.Equal(t, [][]string{
				{"a", "b"},
				{"1", "2, with comma"},
				{"3", "line\nbreak", "extra"},
			}, values)
		})
	}
}

func TestSQLTablesAreIsolatedBySheet(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQL(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	brands := NewSQLTable(db, "sqlite", "brands")
	ledger := NewSQLTable(db, "sqlite", "ledger")

	require.NoError(t, brands.Append(ctx, [][]string{{"Brand Name", "Brand URL"}}))
	require.NoError(t, ledger.Append(ctx, [][]string{{"Brand"}}))

	values, err := brands.Values(ctx)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Brand Name", "Brand URL"}}, values)
}

func TestOpenSQLRejectsUnknownDriver(t *testing.T) {
	_, err := OpenSQL(context.Background(), "mysql", "dsn")
	require.ErrorContains(t, err, "unsupported")
}

func TestCSVTableAppendAfterUnterminatedLine(t *testing.T) {
	tests := []struct {
		name string
		seed string
		want string
	}{
		{name: "missing final newline", seed: "h1,h2\nx,y", want: "h1,h2\nx,y\np,q\n"},
		{name: "terminated", seed: "h1,h2\nx,y\n", want: "h1,h2\nx,y\np,q\n"},
		{name: "crlf terminated", seed: "h1,h2\r\nx,y\r\n", want: "h1,h2\r\nx,y\r\np,q\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "registry.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.seed), 0o644))

			table := NewCSVTable(path)
			require.NoError(t, table.Append(ctx, [][]string{{"p", "q"}}))

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(raw))

			values, err := table.Values(ctx)
			require.NoError(t, err)
			require.Equal(t, [][]string{{"h1", "h2"}, {"x", "y"}, {"p", "q"}}, values)
		})
	}
}

func TestCSVTableUnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.csv")
	require.NoError(t, os.WriteFile(path, []byte("\"unterminated\n"), 0o644))

	_, err := NewCSVTable(path).Values(context.Background())
	require.ErrorContains(t, err, "read csv file")
}

func TestWorkbookOpen(t *testing.T) {
	ctx := context.Background()

	wb, err := Open(ctx, config.StorageConfig{Backend: "sqlite", DSN: ":memory:", RegistrySheet: "brands", LedgerSheet: "ledger"})
	require.NoError(t, err)
	require.NoError(t, wb.Ledger.Append(ctx, [][]string{{"x"}}))
	values, err := wb.Registry.Values(ctx)
	require.NoError(t, err)
	require.Empty(t, values)
	require.NoError(t, wb.Close())

	dir := t.TempDir()
	wb, err = Open(ctx, config.StorageConfig{Backend: "csv", RegistryPath: filepath.Join(dir, "b.csv"), LedgerPath: filepath.Join(dir, "l.csv")})
	require.NoError(t, err)
	require.IsType(t, &CSVTable{}, wb.Ledger)
	require.NoError(t, wb.Close())

	_, err = Open(ctx, config.StorageConfig{Backend: "sheets"})
	require.Error(t, err)
}

func TestHeaderIndexAndCell(t *testing.T) {
	index := HeaderIndex([]string{"Brand", "Price", "Brand"})
	require.Equal(t, 0, index["Brand"])
	require.Equal(t, 1, index["Price"])

	require.Equal(t, "b", Cell([]string{"a", "b"}, 1))
	require.Equal(t, "", Cell([]string{"a"}, 3))
	require.Equal(t, "", Cell([]string{"a"}, -1))
}
