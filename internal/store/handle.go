// Package store owns the SQLite connection of the fetcher: opening it,
// executing statements, bootstrapping the schema and inserting rows.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

// Result reports what a single statement did
type Result struct {
	InsertedID   int64
	RowsAffected int64
}

// Executor runs one parameterized statement
type Executor interface {
	Execute(ctx context.Context, stmt string, args ...any) (Result, error)
}

// Handle owns exactly one connection to one SQLite file.
//
// Handle is safe for concurrent use. Statements from different goroutines
// are queued on the single connection, each one atomic.
type Handle struct {
	db     *sql.DB
	cfg    Config
	mu     sync.RWMutex
	closed bool
}

// Open creates the parent directory if needed and connects to the store.
func Open(ctx context.Context, cfg Config) (*Handle, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrConnection, err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrConnection, err).WithData(struct {
			Phase string
			Path  string
		}{
			Phase: "create_directory",
			Path:  cfg.Path,
		})
	}

	db, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, errFactory.Wrap(ErrConnection, err).WithData(struct {
			Phase string
			Path  string
		}{
			Phase: "open_database",
			Path:  cfg.Path,
		})
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrConnection, err).WithData(struct {
			Phase string
			Path  string
		}{
			Phase: "ping_database",
			Path:  cfg.Path,
		})
	}

	logger.Debug().Str("path", cfg.Path).Msg("Store opened")

	return &Handle{db: db, cfg: cfg}, nil
}

// Path returns the file backing the handle
func (h *Handle) Path() string {
	return h.cfg.Path
}

// Execute runs one parameterized statement on the handle's connection.
func (h *Handle) Execute(ctx context.Context, stmt string, args ...any) (Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return Result{}, errors.New().New(ErrClosedHandle)
	}

	return execute(ctx, h.db, stmt, args)
}

// RunSerialized hands fn the connection for its whole duration. Statements
// issued through ex run in submission order, and all of them complete before
// any statement submitted after RunSerialized returns. fn must not call back
// into the Handle itself, the connection is already taken.
func (h *Handle) RunSerialized(ctx context.Context, fn func(ctx context.Context, ex Executor) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return errors.New().New(ErrClosedHandle)
	}

	conn, err := h.db.Conn(ctx)
	if err != nil {
		return errors.New().Wrap(ErrConnection, err)
	}
	defer conn.Close()

	return fn(ctx, &connExecutor{conn: conn})
}

// EnableWAL switches the store to write-ahead logging
func (h *Handle) EnableWAL(ctx context.Context) error {
	_, err := h.Execute(ctx, "PRAGMA journal_mode = WAL")
	return err
}

// Close checkpoints the WAL and releases the connection. Closing twice is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if _, err := h.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logger.Debug().Err(err).Msg("Failed to checkpoint WAL")
	}

	if err := h.db.Close(); err != nil {
		return errors.New().Wrap(ErrStoreClose, err)
	}

	logger.Debug().Str("path", h.cfg.Path).Msg("Store closed")

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execute(ctx context.Context, ex execer, stmt string, args []any) (Result, error) {
	if n := countPlaceholders(stmt); n != len(args) {
		return Result{}, statementError(stmt,
			fmt.Errorf("statement has %d placeholders, got %d arguments", n, len(args)))
	}

	res, err := ex.ExecContext(ctx, stmt, args...)
	if err != nil {
		logger.Debug().Err(err).Str("sql", stmt).Msg("Statement failed")
		return Result{}, statementError(stmt, err)
	}

	var out Result
	if id, err := res.LastInsertId(); err == nil {
		out.InsertedID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	return out, nil
}

type connExecutor struct {
	conn *sql.Conn
}

func (c *connExecutor) Execute(ctx context.Context, stmt string, args ...any) (Result, error) {
	return execute(ctx, c.conn, stmt, args)
}
