// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ffutop/surveysim/internal/table"
)

const (
	// ResultsTable is the table every chunk is appended to.
	ResultsTable = "sorcha_results"

	// leftoverIndexColumn is an index column some upstream steps leave behind.
	leftoverIndexColumn = "level_0"

	sqliteDriver = "sqlite3"
)

// SQLWriter appends chunks as rows of a single sqlite3 table.
// The table is created from the first chunk's columns if it does not exist.
type SQLWriter struct {
	path   string
	table  string
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLWriter creates a new SQLWriter. The database is opened on first Append.
func NewSQLWriter(path string, logger *slog.Logger) *SQLWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLWriter{
		path:   path,
		table:  ResultsTable,
		logger: logger,
	}
}

func (s *SQLWriter) open() error {
	if s.db != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	db, err := sql.Open(sqliteDriver, s.path)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	// One connection: the run is a single sequential writer.
	db.SetMaxOpenConns(1)
	s.db = db
	return nil
}

// Append inserts every row of b inside one transaction.
func (s *SQLWriter) Append(ctx context.Context, b *table.Batch, key string) error {
	b.Drop(leftoverIndexColumn)

	if err := s.open(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createTableSQL(s.table, b)); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(s.table, b))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	cols := b.Columns()
	args := make([]any, len(cols))
	for i := 0; i < b.NumRows(); i++ {
		for j, c := range cols {
			args[j] = sqlValue(c, i)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Info(fmt.Sprintf("SQL results saved in table %s in database %s.", s.table, s.path))
	return nil
}

func (s *SQLWriter) Path() string {
	return s.path
}

func (s *SQLWriter) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func sqlValue(c *table.Column, i int) any {
	switch c.Kind {
	case table.KindFloat:
		if math.IsNaN(c.Floats[i]) {
			return nil
		}
		return c.Floats[i]
	case table.KindInt:
		return c.Ints[i]
	default:
		return c.Strings[i]
	}
}

func sqlType(k table.Kind) string {
	switch k {
	case table.KindFloat:
		return "REAL"
	case table.KindInt:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func createTableSQL(name string, b *table.Batch) string {
	defs := make([]string, 0, b.NumColumns())
	for _, c := range b.Columns() {
		defs = append(defs, quoteIdent(c.Name)+" "+sqlType(c.Kind))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
}

func insertSQL(name string, b *table.Batch) string {
	cols := make([]string, 0, b.NumColumns())
	marks := make([]string, 0, b.NumColumns())
	for _, c := range b.Columns() {
		cols = append(cols, quoteIdent(c.Name))
		marks = append(marks, "?")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(name), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// ReadSQLite loads every row of the results table, in insertion order.
func ReadSQLite(ctx context.Context, path string) (*table.Batch, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	defer db.Close()

	kinds, names, err := tableSchema(ctx, db, ResultsTable)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("table %s not found in %s", ResultsTable, path)
	}

	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(quoted, ", "), quoteIdent(ResultsTable)))
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	cols := make([]*table.Column, len(names))
	for i, n := range names {
		cols[i] = &table.Column{Name: n, Kind: kinds[i]}
	}

	// Row indices of NULLs in INTEGER columns; such columns are read as float with NaN.
	nulls := make([][]int, len(cols))

	for rows.Next() {
		dest := make([]any, len(cols))
		for i, c := range cols {
			switch c.Kind {
			case table.KindFloat:
				dest[i] = new(sql.NullFloat64)
			case table.KindInt:
				dest[i] = new(sql.NullInt64)
			default:
				dest[i] = new(sql.NullString)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, c := range cols {
			switch v := dest[i].(type) {
			case *sql.NullFloat64:
				if v.Valid {
					c.Floats = append(c.Floats, v.Float64)
				} else {
					c.Floats = append(c.Floats, math.NaN())
				}
			case *sql.NullInt64:
				if !v.Valid {
					nulls[i] = append(nulls[i], len(c.Ints))
				}
				c.Ints = append(c.Ints, v.Int64)
			case *sql.NullString:
				c.Strings = append(c.Strings, v.String)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, c := range cols {
		if len(nulls[i]) == 0 {
			continue
		}
		floats := make([]float64, len(c.Ints))
		for j, n := range c.Ints {
			floats[j] = float64(n)
		}
		for _, j := range nulls[i] {
			floats[j] = math.NaN()
		}
		c.Kind, c.Floats, c.Ints = table.KindFloat, floats, nil
	}

	out := table.New()
	for _, c := range cols {
		if err := out.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func tableSchema(ctx context.Context, db *sql.DB, name string) ([]table.Kind, []string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read schema: %w", err)
	}
	defer rows.Close()

	var (
		kinds []table.Kind
		names []string
	)
	for rows.Next() {
		var (
			cid       int
			colName   string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, nil, err
		}
		names = append(names, colName)
		switch strings.ToUpper(colType) {
		case "REAL":
			kinds = append(kinds, table.KindFloat)
		case "INTEGER":
			kinds = append(kinds, table.KindInt)
		default:
			kinds = append(kinds, table.KindString)
		}
	}
	return kinds, names, rows.Err()
}
