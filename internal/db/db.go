// Package db provides persistence for dossier: clients, projects and the
// approval workflow tables, over SQLite (default) or PostgreSQL.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/randalmurphal/dossier/internal/db/driver"
)

// SchemaType is the migration file prefix for the dossier schema.
const SchemaType = "dossier"

//go:embed schema/*.sql schema/postgres/*.sql
var schemaFS embed.FS

// embedFSAdapter wraps embed.FS to implement driver.SchemaFS.
type embedFSAdapter struct {
	fs embed.FS
}

func (e *embedFSAdapter) ReadDir(name string) ([]driver.DirEntry, error) {
	entries, err := e.fs.ReadDir(name)
	if err != nil {
		return nil, err
	}
	result := make([]driver.DirEntry, len(entries))
	for i, entry := range entries {
		result[i] = entry
	}
	return result, nil
}

func (e *embedFSAdapter) ReadFile(name string) ([]byte, error) {
	return e.fs.ReadFile(name)
}

// DB wraps a database connection with driver abstraction.
type DB struct {
	driver driver.Driver
	path   string
}

// Open opens a SQLite database at the given path, creating the parent
// directory if needed.
func Open(path string) (*DB, error) {
	return OpenWithDialect(path, driver.DialectSQLite)
}

// OpenInMemory opens a private in-memory SQLite database. Each call
// creates a new isolated database.
func OpenInMemory() (*DB, error) {
	drv := driver.NewSQLite()
	if err := drv.Open(":memory:"); err != nil {
		return nil, err
	}
	return &DB{driver: drv, path: ":memory:"}, nil
}

// OpenWithDialect opens a database with a specific dialect. For SQLite dsn
// is a file path; for PostgreSQL it is a connection string.
func OpenWithDialect(dsn string, dialect driver.Dialect) (*DB, error) {
	if dialect == driver.DialectSQLite && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	drv, err := driver.New(dialect)
	if err != nil {
		return nil, err
	}
	if err := drv.Open(dsn); err != nil {
		return nil, err
	}
	return &DB{driver: drv, path: dsn}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.driver.Close()
}

// Path returns the database DSN/path.
func (d *DB) Path() string {
	return d.path
}

// DB returns the underlying sql.DB for advanced operations.
func (d *DB) DB() *sql.DB {
	return d.driver.DB()
}

// Dialect returns the database dialect.
func (d *DB) Dialect() driver.Dialect {
	return d.driver.Dialect()
}

// Migrate applies all pending dossier schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return d.driver.Migrate(ctx, &embedFSAdapter{fs: schemaFS}, SchemaType)
}

// ExecContext executes a query without returning rows.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.driver.Exec(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.driver.Query(ctx, query, args...)
}

// QueryRowContext executes a query that returns at most one row.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.driver.QueryRow(ctx, query, args...)
}

// Ping verifies the connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.driver.DB().PingContext(ctx)
}

// TxOps runs queries inside a transaction with the context it was opened
// with.
type TxOps struct {
	tx  driver.Tx
	ctx context.Context
}

// Exec executes a query within the transaction.
func (t *TxOps) Exec(query string, args ...any) (sql.Result, error) {
	return t.tx.Exec(t.ctx, query, args...)
}

// Query executes a query that returns rows within the transaction.
func (t *TxOps) Query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.Query(t.ctx, query, args...)
}

// QueryRow executes a query that returns at most one row within the transaction.
func (t *TxOps) QueryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRow(t.ctx, query, args...)
}

// Context returns the context associated with this transaction.
func (t *TxOps) Context() context.Context {
	return t.ctx
}

// RunInTx executes fn within a database transaction. If fn returns an
// error the transaction is rolled back; otherwise it is committed.
func (d *DB) RunInTx(ctx context.Context, fn func(tx *TxOps) error) error {
	tx, err := d.driver.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&TxOps{tx: tx, ctx: ctx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// querier is satisfied by *DB (via queryCtx) and *TxOps, letting read
// helpers run inside or outside a transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// queryCtx binds a context to DB so it satisfies querier.
type queryCtx struct {
	d   *DB
	ctx context.Context
}

func (q queryCtx) Exec(query string, args ...any) (sql.Result, error) {
	return q.d.ExecContext(q.ctx, query, args...)
}

func (q queryCtx) Query(query string, args ...any) (*sql.Rows, error) {
	return q.d.QueryContext(q.ctx, query, args...)
}

func (q queryCtx) QueryRow(query string, args ...any) *sql.Row {
	return q.d.QueryRowContext(q.ctx, query, args...)
}

func (d *DB) with(ctx context.Context) querier {
	return queryCtx{d: d, ctx: ctx}
}
