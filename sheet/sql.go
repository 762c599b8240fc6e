package sheet

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const rowsTable = "sheet_rows"

var schemas = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS sheet_rows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sheet TEXT NOT NULL,
	cells TEXT NOT NULL
)`,
	"postgres": `CREATE TABLE IF NOT EXISTS sheet_rows (
	id BIGSERIAL PRIMARY KEY,
	sheet TEXT NOT NULL,
	cells TEXT NOT NULL
)`,
}

// OpenSQL opens driver ("sqlite" or "postgres") at dsn and creates the
// backing table if needed.
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection keeps :memory: databases shared and serialises writers
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s: %w", rowsTable, err)
	}
	return db, nil
}

// SQLTable stores each row of a named range as a JSON array of cells.
// Row order is insertion order of the id column.
type SQLTable struct {
	db     *sql.DB
	sheet  string
	format squirrel.PlaceholderFormat
}

// NewSQLTable returns the range called sheet inside db.
func NewSQLTable(db *sql.DB, driver, sheet string) *SQLTable {
	var format squirrel.PlaceholderFormat = squirrel.Question
	if driver == "postgres" {
		format = squirrel.Dollar
	}
	return &SQLTable{db: db, sheet: sheet, format: format}
}

// Values returns all rows of the range.
func (t *SQLTable) Values(ctx context.Context) ([][]string, error) {
	rows, err := squirrel.Select("cells").
		From(rowsTable).
		Where(squirrel.Eq{"sheet": t.sheet}).
		OrderBy("id").
		PlaceholderFormat(t.format).
		RunWith(t.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.sheet, err)
	}
	defer rows.Close()

	var values [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		values = append(values, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return values, nil
}

// Append inserts rows in a single transaction.
func (t *SQLTable) Append(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	insert := squirrel.Insert(rowsTable).
		Columns("sheet", "cells").
		PlaceholderFormat(t.format)
	for _, row := range rows {
		if row == nil {
			row = []string{}
		}
		encoded, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		insert = insert.Values(t.sheet, string(encoded))
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}
