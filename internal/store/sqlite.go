package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/datastack/internal/ir"
	"github.com/roach88/datastack/internal/schema"
)

// database/sql driver names.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPure is modernc.org/sqlite (no cgo).
	DriverPure = "sqlite"
)

// Option configures OpenSQLite.
type Option func(*sqliteOptions)

type sqliteOptions struct {
	driver      string
	autoMigrate bool
}

// WithDriver selects the database/sql driver. Defaults to DriverCGO.
func WithDriver(name string) Option {
	return func(o *sqliteOptions) {
		if name != "" {
			o.driver = name
		}
	}
}

// WithAutoMigrate controls whether an existing store may be upgraded to the
// current schema and re-bound to a changed model. Defaults to true.
func WithAutoMigrate(on bool) Option {
	return func(o *sqliteOptions) {
		o.autoMigrate = on
	}
}

// SQLiteStore is the durable Store.
type SQLiteStore struct {
	path  string
	model *schema.Model
	db    *sql.DB

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite creates or opens a SQLite store at path.
// Applies required pragmas and migrations, then binds the store to model.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// A file that is not a SQLite database fails here; the caller decides
// whether to delete it and retry.
func OpenSQLite(path string, model *schema.Model, opts ...Option) (*SQLiteStore, error) {
	o := sqliteOptions{driver: DriverCGO, autoMigrate: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.driver != DriverCGO && o.driver != DriverPure {
		return nil, fmt.Errorf("unsupported sqlite driver %q", o.driver)
	}

	// Open database (creates file if doesn't exist)
	db, err := sql.Open(o.driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := runMigrations(db, o.driver, o.autoMigrate); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := bindModel(db, model, o.autoMigrate); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{path: path, model: model, db: db}, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// bindModel records the model hash on first open and compares it after.
func bindModel(db *sql.DB, model *schema.Model, auto bool) error {
	var stored string
	err := db.QueryRow(`SELECT value FROM store_metadata WHERE key = 'model_hash'`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read model hash: %w", err)
	case stored == model.Hash():
		return nil
	case !auto:
		return fmt.Errorf("model %q: %w", model.Name, ErrModelMismatch)
	}

	_, err = db.Exec(`
		INSERT INTO store_metadata (key, value) VALUES ('model_hash', ?), ('model_name', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, model.Hash(), model.Name)
	if err != nil {
		return fmt.Errorf("write model hash: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Kind() Kind   { return Durable }
func (s *SQLiteStore) Path() string { return s.path }

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Fetch(ctx context.Context, req FetchRequest) ([]ir.Snapshot, error) {
	if _, ok := s.model.Entity(req.Entity); !ok {
		return nil, entityError("fetch", req.Entity, ErrUnknownEntity)
	}

	query := `SELECT id, version, attrs FROM objects WHERE entity = ? ORDER BY id ASC`
	if req.IDsOnly {
		query = `SELECT id, version FROM objects WHERE entity = ? ORDER BY id ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, req.Entity)
	if err != nil {
		return nil, s.wrap("fetch", err)
	}
	defer rows.Close()

	var out []ir.Snapshot
	for rows.Next() {
		snap := ir.Snapshot{Entity: req.Entity}
		var id string
		if req.IDsOnly {
			err = rows.Scan(&id, &snap.Version)
		} else {
			var attrsJSON string
			err = rows.Scan(&id, &snap.Version, &attrsJSON)
			if err == nil {
				snap.Attrs, err = ir.UnmarshalAttrs([]byte(attrsJSON))
			}
		}
		if err != nil {
			return nil, fmt.Errorf("fetch %s: scan: %w", req.Entity, err)
		}
		snap.ID = ir.ObjectID(id)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("fetch", err)
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id ir.ObjectID) (ir.Snapshot, error) {
	var entity, attrsJSON string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT entity, attrs, version FROM objects WHERE id = ?`, string(id),
	).Scan(&entity, &attrsJSON, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Snapshot{}, objectError("get", id, ErrNotFound)
	}
	if err != nil {
		return ir.Snapshot{}, s.wrap("get", err)
	}

	attrs, err := ir.UnmarshalAttrs([]byte(attrsJSON))
	if err != nil {
		return ir.Snapshot{}, objectError("get", id, err)
	}
	return ir.Snapshot{ID: id, Entity: entity, Attrs: attrs, Version: version}, nil
}

// Apply commits the change set in one transaction.
func (s *SQLiteStore) Apply(ctx context.Context, cs ir.ChangeSet) error {
	if cs.Empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("apply", err)
	}
	defer tx.Rollback()

	for _, ins := range cs.Inserted {
		if err := s.insert(ctx, tx, ins); err != nil {
			return err
		}
	}
	for _, upd := range cs.Updated {
		if err := s.update(ctx, tx, upd); err != nil {
			return err
		}
	}
	for _, del := range cs.Deleted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM objects WHERE id = ?`, string(del.ID)); err != nil {
			return objectError("delete", del.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return s.wrap("commit", err)
	}
	return nil
}

func (s *SQLiteStore) insert(ctx context.Context, tx *sql.Tx, snap ir.Snapshot) error {
	if _, ok := s.model.Entity(snap.Entity); !ok {
		return objectError("insert", snap.ID, ErrUnknownEntity)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM objects WHERE id = ?)`, string(snap.ID),
	).Scan(&exists); err != nil {
		return objectError("insert", snap.ID, err)
	}
	if exists {
		return objectError("insert", snap.ID, ErrConflict)
	}

	attrsJSON, err := ir.MarshalAttrs(snap.Attrs)
	if err != nil {
		return objectError("insert", snap.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO objects (id, entity, attrs, version) VALUES (?, ?, ?, 1)`,
		string(snap.ID), snap.Entity, string(attrsJSON),
	)
	if err != nil {
		return objectError("insert", snap.ID, err)
	}
	return nil
}

func (s *SQLiteStore) update(ctx context.Context, tx *sql.Tx, snap ir.Snapshot) error {
	var attrsJSON string
	err := tx.QueryRowContext(ctx,
		`SELECT attrs FROM objects WHERE id = ?`, string(snap.ID),
	).Scan(&attrsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return objectError("update", snap.ID, ErrNotFound)
	}
	if err != nil {
		return objectError("update", snap.ID, err)
	}

	current, err := ir.UnmarshalAttrs([]byte(attrsJSON))
	if err != nil {
		return objectError("update", snap.ID, err)
	}
	merged, err := ir.MarshalAttrs(mergeAttrs(current, snap.Attrs))
	if err != nil {
		return objectError("update", snap.ID, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE objects SET attrs = ?, version = version + 1 WHERE id = ?`,
		string(merged), string(snap.ID),
	)
	if err != nil {
		return objectError("update", snap.ID, err)
	}
	return nil
}

func (s *SQLiteStore) BatchDelete(ctx context.Context, entity string) (int, error) {
	if _, ok := s.model.Entity(entity); !ok {
		return 0, entityError("batch delete", entity, ErrUnknownEntity)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE entity = ?`, entity)
	if err != nil {
		return 0, s.wrap("batch delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.wrap("batch delete", err)
	}
	return int(n), nil
}

// Close closes the database. Close is idempotent.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// wrap maps database/sql's closed-database error onto ErrClosed.
func (s *SQLiteStore) wrap(op string, err error) error {
	if err != nil && err.Error() == "sql: database is closed" {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLiteStore) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
