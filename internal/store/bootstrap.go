package store

import (
	"context"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/logger"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/schema"
)

// Bootstrap drops and recreates every fixed table of the catalog and one
// history table per volume id. Drops are best effort. Create failures are
// returned once every table has been attempted. Tables of volumes not in
// volumeIDs are left alone.
func Bootstrap(ctx context.Context, h *Handle, catalog *schema.Catalog, volumeIDs []string) error {
	errFactory := errors.New()

	if err := h.EnableWAL(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to enable WAL, continuing in default journal mode")
	}

	tables := append(catalog.Tables(), catalog.VolumeTables(volumeIDs)...)

	logger.Debug().
		Int("tables", len(tables)).
		Strs("volumes", volumeIDs).
		Msg("Bootstrapping store")

	err := h.RunSerialized(ctx, func(ctx context.Context, ex Executor) error {
		for _, t := range tables {
			if err := dropTable(ctx, ex, t.Name); err != nil {
				logger.Warn().Err(err).Str("table", t.Name).Msg("Failed to drop table")
			}
		}
		return nil
	})
	if err != nil {
		return errFactory.Wrap(ErrSchemaInit, err)
	}

	var failed []error
	err = h.RunSerialized(ctx, func(ctx context.Context, ex Executor) error {
		for _, t := range tables {
			err := createTable(ctx, ex, t.Name, t.ColumnNames(), t.ColumnTypes())
			switch {
			case err == nil:
				logger.Debug().Str("table", t.Name).Msg("Table created")
			case errors.HasCode(err, ErrInvalidColumns):
				logger.Warn().Err(err).Str("table", t.Name).Msg("Skipping table with invalid columns")
			default:
				logger.Error().Err(err).Str("table", t.Name).Msg("Failed to create table")
				failed = append(failed, err)
			}
		}
		return errors.Join(failed...)
	})
	if err != nil {
		return errFactory.Wrap(ErrSchemaInit, err)
	}

	logger.Info().
		Int("tables", len(tables)).
		Str("path", h.Path()).
		Msg("Schema initialized successfully")

	return nil
}

func dropTable(ctx context.Context, ex Executor, name string) error {
	_, err := ex.Execute(ctx, dropTableSQL(name))
	return err
}

// createTable refuses column lists that are empty or whose names and
// types do not pair up
func createTable(ctx context.Context, ex Executor, name string, names []string, types []schema.ColumnType) error {
	stmt, err := createTableSQL(name, names, types)
	if err != nil {
		return err
	}
	_, err = ex.Execute(ctx, stmt)
	return err
}
