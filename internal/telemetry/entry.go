package telemetry

import (
	"context"
	"os"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/collector"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/logger"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/schema"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/store"
)

var bootstrap = store.Bootstrap

// Initialize creates and bootstraps the store unless its file already
// exists. force bootstraps an existing store again, which empties it.
// It reports whether a bootstrap ran. A store created by a failed
// bootstrap is removed so the next call starts over.
func Initialize(ctx context.Context, cfg store.Config, volumeIDs []string, force bool) (bool, error) {
	errFactory := errors.New()

	_, err := os.Stat(cfg.Path)
	existed := err == nil
	switch {
	case existed && !force:
		logger.Debug().Str("path", cfg.Path).Msg("Store exists, skipping bootstrap")
		return false, nil
	case err != nil && !os.IsNotExist(err):
		return false, errFactory.Wrap(ErrStorageInit, err)
	}

	h, err := store.Open(ctx, cfg)
	if err != nil {
		return false, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := bootstrap(ctx, h, schema.NewCatalog(), volumeIDs); err != nil {
		h.Close()
		if !existed {
			removeStore(cfg.Path)
		} else {
			logger.Warn().Str("path", cfg.Path).Msg("Store is partially initialized, rerun init with --force")
		}
		return false, err
	}

	if err := h.Close(); err != nil {
		return true, errFactory.Wrap(ErrStorageClose, err)
	}

	return true, nil
}

func removeStore(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", p).Msg("Failed to remove partial store")
		}
	}
}

// ListCurrentVolumeIDs returns the volumes currently attached to the host
func ListCurrentVolumeIDs(ctx context.Context, source collector.Source) ([]string, error) {
	return source.VolumeIDs(ctx)
}

// CollectInto opens the store, collects category and closes the store.
// category is a category name or "all". The returned error covers the
// store and the category name; per-category failures are in the report.
func (s *Service) CollectInto(ctx context.Context, cfg store.Config, category string, volumeIDs []string) (*Report, error) {
	errFactory := errors.New()

	var cat schema.Category
	if category != schema.AllName {
		var err error
		if cat, err = schema.ParseCategory(category); err != nil {
			return nil, err
		}
	}

	h, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var report *Report
	switch {
	case category == schema.AllName:
		report = s.CollectAll(ctx, h, volumeIDs)
	case cat.PerVolume():
		report = &Report{}
		for _, id := range volumeIDs {
			res, _ := s.Collect(ctx, h, cat, id)
			report.Results = append(report.Results, res)
		}
	default:
		res, _ := s.Collect(ctx, h, cat, "")
		report = &Report{Results: []Result{res}}
	}

	if err := h.Close(); err != nil {
		return report, errFactory.Wrap(ErrStorageClose, err)
	}

	return report, nil
}
