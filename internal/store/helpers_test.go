package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHandle(t testing.TB) *Handle {
	t.Helper()
	h, err := Open(context.Background(), DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func countRows(t testing.TB, h *Handle, table string) int {
	t.Helper()
	var n int
	require.NoError(t, h.db.QueryRow("SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n))
	return n
}

func tableExists(t testing.TB, h *Handle, name string) bool {
	t.Helper()
	var exists bool
	require.NoError(t, h.db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)`, name,
	).Scan(&exists))
	return exists
}

// tableColumns lists "name TYPE" for every declared column, id included
func tableColumns(t testing.TB, h *Handle, name string) []string {
	t.Helper()
	rows, err := h.db.Query(`SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, name)
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var colName, colType string
		require.NoError(t, rows.Scan(&colName, &colType))
		columns = append(columns, colName+" "+colType)
	}
	require.NoError(t, rows.Err())
	return columns
}

type recordedCall struct {
	stmt string
	args []any
}

// recordingExecutor captures statements instead of running them
type recordingExecutor struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *recordingExecutor) Execute(_ context.Context, stmt string, args ...any) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{stmt: stmt, args: args})
	return Result{RowsAffected: 1}, nil
}

type rowRecord []any

func (r rowRecord) Values() []any { return r }
