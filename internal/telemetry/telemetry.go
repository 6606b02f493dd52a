// Package telemetry drives collection rounds: it samples categories from a
// collector.Source and writes the records into the store.
package telemetry

import (
	"context"
	"time"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/collector"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/logger"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/metrics"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/schema"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/store"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of collecting one category. VolumeID is only set
// for filesystem history.
type Result struct {
	Category schema.Category
	VolumeID string
	Table    string
	Rows     int64
	Skipped  bool
	Elapsed  time.Duration
	Err      error
}

type Service struct {
	catalog     *schema.Catalog
	source      collector.Source
	metrics     *metrics.Recorder
	gpu         bool
	concurrency int
}

func NewService(catalog *schema.Catalog, source collector.Source, opts ...Option) *Service {
	s := &Service{
		catalog:     catalog,
		source:      source,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collect samples one category and writes it through ex. Filesystem
// history with an empty volume id is skipped without error.
func (s *Service) Collect(ctx context.Context, ex store.Executor, cat schema.Category, volumeID string) (res Result, err error) {
	start := time.Now()
	res = Result{Category: cat, VolumeID: volumeID}

	defer func() {
		res.Elapsed = time.Since(start)
		s.observe(res)
	}()

	if cat.PerVolume() && volumeID == "" {
		res.Skipped = true
		logger.Debug().Str("category", cat.String()).Msg("No volume id, skipping")
		return res, nil
	}

	table, err := s.table(cat, volumeID)
	if err != nil {
		res.Err = err
		return res, err
	}
	res.Table = table.Name

	recs, err := s.sample(ctx, cat, volumeID)
	if err != nil {
		if !errors.HasCode(err, ErrCollector) {
			err = collector.Error(cat.String(), err)
		}
		res.Err = err
		s.logFailure(res, "Failed to sample category")
		return res, err
	}

	for _, rec := range recs {
		if err := s.catalog.Validate(table, rec); err != nil {
			res.Err = err
			s.logFailure(res, "Record does not match table")
			return res, err
		}
	}

	var written store.Result
	if cat.Batch() || len(recs) != 1 {
		written, err = store.WriteRows(ctx, ex, table.Name, table.ColumnNames(), recs)
	} else {
		written, err = store.WriteRow(ctx, ex, table.Name, table.ColumnNames(), recs[0])
	}
	if err != nil {
		res.Err = err
		s.logFailure(res, "Failed to write records")
		return res, err
	}
	res.Rows = written.RowsAffected

	logger.Debug().
		Str("category", cat.String()).
		Str("table", table.Name).
		Int64("rows", res.Rows).
		Msg("Category collected")

	return res, nil
}

// CollectAll samples every fixed category and the history of every volume
// concurrently, and waits for all of them. A failing category does not
// affect the others.
func (s *Service) CollectAll(ctx context.Context, ex store.Executor, volumeIDs []string) *Report {
	type job struct {
		cat      schema.Category
		volumeID string
	}

	var jobs []job
	for _, cat := range schema.Categories() {
		if cat == schema.GPUInfo && !s.gpu {
			continue
		}
		jobs = append(jobs, job{cat: cat})
	}
	for _, id := range volumeIDs {
		jobs = append(jobs, job{cat: schema.FilesystemHistory, volumeID: id})
	}

	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			results[i], _ = s.Collect(ctx, ex, j.cat, j.volumeID)
			return nil
		})
	}
	// failures travel in the results, never through the group
	_ = g.Wait()

	report := &Report{Results: results}

	logger.Info().
		Int("categories", len(results)).
		Int("failed", len(report.Failed())).
		Int64("rows", report.Rows()).
		Msg("Collection round finished")

	return report
}

func (s *Service) table(cat schema.Category, volumeID string) (schema.Table, error) {
	if cat.PerVolume() {
		return s.catalog.VolumeTable(volumeID), nil
	}
	return s.catalog.Table(cat)
}

func (s *Service) sample(ctx context.Context, cat schema.Category, volumeID string) ([]schema.Record, error) {
	src := s.source
	switch cat {
	case schema.DeviceInfo:
		return one(src.DeviceInfo(ctx))
	case schema.UserInfo:
		return many(src.Users(ctx))
	case schema.NetworkInfo:
		return many(src.NetInterfaces(ctx))
	case schema.CPULoad:
		return one(src.CPULoad(ctx))
	case schema.CPUTemperature:
		return one(src.CPUTemperature(ctx))
	case schema.MemoryInfo:
		return one(src.Memory(ctx))
	case schema.FilesystemInfo:
		return many(src.Filesystems(ctx))
	case schema.FilesystemIOHistory:
		return one(src.FilesystemIO(ctx))
	case schema.GPUInfo:
		return many(src.GPUs(ctx))
	case schema.FilesystemHistory:
		return one(src.FilesystemHistory(ctx, volumeID))
	default:
		return nil, errors.New().WithData(ErrUnknownCategory, cat.String())
	}
}

func one[T schema.Record](rec T, err error) ([]schema.Record, error) {
	if err != nil {
		return nil, err
	}
	return []schema.Record{rec}, nil
}

func many[T schema.Record](recs []T, err error) ([]schema.Record, error) {
	if err != nil {
		return nil, err
	}
	return schema.AsRecords(recs), nil
}

func (s *Service) observe(res Result) {
	result := metrics.ResultSuccess
	switch {
	case res.Err != nil:
		result = metrics.ResultError
	case res.Skipped:
		result = metrics.ResultSkipped
	}
	s.metrics.Observe(res.Category.String(), result, res.Rows, res.Elapsed)
}

func (s *Service) logFailure(res Result, msg string) {
	event := logger.ErrorWithCode(res.Err).
		Str("category", res.Category.String()).
		Str("table", res.Table)
	if res.VolumeID != "" {
		event = event.Str("volume", res.VolumeID)
	}
	event.Msg(msg)
}
