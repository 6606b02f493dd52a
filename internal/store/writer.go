package store

import (
	"context"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/schema"
)

// WriteRow inserts one record into table. Values are bound in the order of
// columns; a value count that does not match surfaces as ErrStatement.
func WriteRow(ctx context.Context, ex Executor, table string, columns []string, rec schema.Record) (Result, error) {
	if rec == nil {
		return Result{}, errors.New().WithMessage(errors.ErrInvalidArgument, "nil record for table "+table)
	}

	values := rec.Values()
	return ex.Execute(ctx, insertSQL(table, columns, [][]any{values}), values...)
}

// WriteRows inserts a batch with a single multi-row statement, arguments
// flattened row-major. An empty batch issues no statement.
func WriteRows(ctx context.Context, ex Executor, table string, columns []string, recs []schema.Record) (Result, error) {
	if len(recs) == 0 {
		return Result{}, nil
	}

	rows := make([][]any, len(recs))
	args := make([]any, 0, len(recs)*len(columns))
	for i, rec := range recs {
		if rec == nil {
			return Result{}, errors.New().WithMessage(errors.ErrInvalidArgument, "nil record for table "+table)
		}
		rows[i] = rec.Values()
		args = append(args, rows[i]...)
	}

	return ex.Execute(ctx, insertSQL(table, columns, rows), args...)
}
