// Package sqlactivation resolves variables from a SQLite table holding one
// JSON document per variable:
//
//	CREATE TABLE variables (name TEXT PRIMARY KEY, value TEXT NOT NULL)
package sqlactivation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	_ "modernc.org/sqlite"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/values"
)

const DefaultTable = "variables"

var ErrInvalidTable = errors.New("invalid table name")

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store reads and writes variables in one table.
type Store struct {
	db    *sql.DB
	table string
	owned bool
}

// Open opens the SQLite database at path and makes sure the table exists.
func Open(ctx context.Context, path, table string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s, err := New(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing database handle.
func New(ctx context.Context, db *sql.DB, table string) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%q: %w", table, ErrInvalidTable)
	}
	s := &Store{db: db, table: table}
	_, err := db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, value TEXT NOT NULL)`, table))
	if err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	return s, nil
}

// Close closes the database if Open created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Set stores v under name, replacing any previous value.
func (s *Store) Set(ctx context.Context, name string, v values.Value) error {
	pb, err := values.ToStructpb(v)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	doc, err := protojson.Marshal(pb)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (name, value) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value`, s.table),
		name, string(doc))
	if err != nil {
		return fmt.Errorf("store variable %s: %w", name, err)
	}
	return nil
}

// Get loads one variable. A missing row reports found == false.
func (s *Store) Get(ctx context.Context, name string) (v values.Value, found bool, err error) {
	var doc string
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE name = ?`, s.table), name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load variable %s: %w", name, err)
	}
	pb := &structpb.Value{}
	if err := protojson.Unmarshal([]byte(doc), pb); err != nil {
		return nil, false, fmt.Errorf("decode variable %s: %w", name, err)
	}
	return values.FromStructpb(pb), true, nil
}

// Names lists the stored variable names in order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM %s ORDER BY name`, s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Activation returns a view that queries the table under ctx. A failed
// query binds the variable to an error value rather than hiding it.
func (s *Store) Activation(ctx context.Context) activation.Activation {
	return activation.Func(func(name string) (values.Value, bool) {
		v, found, err := s.Get(ctx, name)
		if err != nil {
			return values.NewError(values.ErrInvalidArgument, "%v", err), true
		}
		return v, found
	})
}
