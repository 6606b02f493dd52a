package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/collector"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/metrics"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/schema"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimestamp = int64(1700000000000)

// stubSource returns fixed records; categories listed in fail return an error
type stubSource struct {
	mu      sync.Mutex
	fail    map[string]bool
	calls   map[string]int
	volumes []string
	delay   time.Duration
}

func newStubSource(failing ...string) *stubSource {
	s := &stubSource{fail: map[string]bool{}, calls: map[string]int{}, volumes: []string{"V1", "V2"}}
	for _, name := range failing {
		s.fail[name] = true
	}
	return s
}

func (s *stubSource) hit(name string) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	if s.fail[name] {
		return fmt.Errorf("%s unavailable", name)
	}
	return nil
}

func (s *stubSource) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubSource) DeviceInfo(context.Context) (schema.Device, error) {
	return schema.Device{Timestamp: testTimestamp, Model: "Raspberry Pi 4", CPUCores: 4}, s.hit("devInfo")
}

func (s *stubSource) Users(context.Context) ([]schema.User, error) {
	return []schema.User{{Timestamp: testTimestamp, User: "pi"}}, s.hit("userInfo")
}

func (s *stubSource) NetInterfaces(context.Context) ([]schema.NetInterface, error) {
	return []schema.NetInterface{
		{Timestamp: testTimestamp, Iface: "eth0"},
		{Timestamp: testTimestamp, Iface: "wlan0"},
	}, s.hit("netInfo")
}

func (s *stubSource) CPULoad(context.Context) (schema.CPU, error) {
	return schema.CPU{Timestamp: testTimestamp, Load: 12.5}, s.hit("cpuInfo")
}

func (s *stubSource) CPUTemperature(context.Context) (schema.Temperature, error) {
	return schema.Temperature{Timestamp: testTimestamp, Temperature: 48}, s.hit("cpuTemp")
}

func (s *stubSource) Memory(context.Context) (schema.Memory, error) {
	return schema.Memory{Timestamp: testTimestamp, Used: 1024, SwapTotal: 2048}, s.hit("memInfo")
}

func (s *stubSource) Filesystems(context.Context) ([]schema.Filesystem, error) {
	return nil, s.hit("fsInfo")
}

func (s *stubSource) FilesystemIO(context.Context) (schema.FilesystemIO, error) {
	return schema.FilesystemIO{Timestamp: testTimestamp, RX: 1, TX: 2}, s.hit("fsIoHist")
}

func (s *stubSource) GPUs(context.Context) ([]schema.GPU, error) {
	return []schema.GPU{{Timestamp: testTimestamp, Name: "RTX"}}, s.hit("gpuInfo")
}

func (s *stubSource) FilesystemHistory(_ context.Context, id string) (schema.VolumeUsage, error) {
	return schema.VolumeUsage{Timestamp: testTimestamp, UsedPercent: 50, Smart: "ok"}, s.hit("fsHist:" + id)
}

func (s *stubSource) VolumeIDs(context.Context) ([]string, error) {
	return s.volumes, s.hit("volumes")
}

var _ collector.Source = (*stubSource)(nil)

func testStore(t *testing.T, volumeIDs ...string) (store.Config, *store.Handle) {
	t.Helper()
	ctx := context.Background()
	cfg := store.DefaultConfig(filepath.Join(t.TempDir(), "sysmon.db"))

	created, err := Initialize(ctx, cfg, volumeIDs, false)
	require.NoError(t, err)
	require.True(t, created)

	h, err := store.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return cfg, h
}

func countRows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "`+table+`"`).Scan(&n))
	return n
}

func TestCollect_Memory(t *testing.T) {
	ctx := context.Background()
	cfg, h := testStore(t)
	svc := NewService(schema.NewCatalog(), newStubSource())

	res, err := svc.Collect(ctx, h, schema.MemoryInfo, "")
	require.NoError(t, err)
	assert.Equal(t, "mem", res.Table)
	assert.Equal(t, int64(1), res.Rows)
	require.NoError(t, h.Close())

	db, err := sql.Open("sqlite3", cfg.Path)
	require.NoError(t, err)
	defer db.Close()

	var id, ts sql.NullInt64
	var used, swapTotal int64
	require.NoError(t, db.QueryRow(`SELECT id, timestamp, used, swapTotal FROM mem`).Scan(&id, &ts, &used, &swapTotal))
	assert.True(t, id.Valid)
	assert.True(t, ts.Valid)
	assert.Equal(t, testTimestamp, ts.Int64)
	assert.Equal(t, int64(1024), used)
	assert.Equal(t, int64(2048), swapTotal)
	assert.Equal(t, 1, countRows(t, cfg.Path, "mem"))
}

func TestCollect_Elapsed(t *testing.T) {
	_, h := testStore(t)
	src := newStubSource()
	src.delay = 5 * time.Millisecond
	svc := NewService(schema.NewCatalog(), src)

	res, err := svc.Collect(context.Background(), h, schema.MemoryInfo, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Elapsed, src.delay)

	report := svc.CollectAll(context.Background(), h, nil)
	require.NoError(t, report.Err())
	for _, r := range report.Results {
		assert.GreaterOrEqual(t, r.Elapsed, src.delay, r.Category.String())
	}
}

func TestCollect_Batch(t *testing.T) {
	ctx := context.Background()
	cfg, h := testStore(t)
	svc := NewService(schema.NewCatalog(), newStubSource())

	res, err := svc.Collect(ctx, h, schema.NetworkInfo, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Rows)

	res, err = svc.Collect(ctx, h, schema.FilesystemInfo, "")
	require.NoError(t, err, "an empty batch is not a failure")
	assert.Zero(t, res.Rows)

	require.NoError(t, h.Close())
	assert.Equal(t, 2, countRows(t, cfg.Path, "netIfaces"))
	assert.Equal(t, 0, countRows(t, cfg.Path, "fs"))
}

func TestCollect_FilesystemHistory(t *testing.T) {
	ctx := context.Background()
	cfg, h := testStore(t, "ABCD-1234")
	src := newStubSource()
	svc := NewService(schema.NewCatalog(), src)

	res, err := svc.Collect(ctx, h, schema.FilesystemHistory, "ABCD-1234")
	require.NoError(t, err)
	assert.Equal(t, "fsHist_ABCD-1234", res.Table)

	res, err = svc.Collect(ctx, h, schema.FilesystemHistory, "")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, src.count("fsHist:ABCD-1234"))
	assert.Equal(t, 0, src.count("fsHist:"))

	require.NoError(t, h.Close())
	assert.Equal(t, 1, countRows(t, cfg.Path, "fsHist_ABCD-1234"))
}

func TestCollect_SourceFailure(t *testing.T) {
	_, h := testStore(t)
	svc := NewService(schema.NewCatalog(), newStubSource("cpuTemp"))

	res, err := svc.Collect(context.Background(), h, schema.CPUTemperature, "")
	require.Error(t, err)
	assert.Equal(t, err, res.Err)
	assert.True(t, errors.HasCode(err, ErrCollector))

	name, ok := collector.CollectorOf(err)
	require.True(t, ok)
	assert.Equal(t, "cpuTemp", name)
}

func TestCollect_MissingTable(t *testing.T) {
	_, h := testStore(t)
	svc := NewService(schema.NewCatalog(), newStubSource())

	// V9 was not known at bootstrap time
	_, err := svc.Collect(context.Background(), h, schema.FilesystemHistory, "V9")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, store.ErrStatement))
}

func TestCollectAll_PartialFailure(t *testing.T) {
	ctx := context.Background()
	cfg, h := testStore(t, "V1", "V2")
	src := newStubSource("cpuTemp")
	svc := NewService(schema.NewCatalog(), src, WithConcurrency(2))

	report := svc.CollectAll(ctx, h, []string{"V1", "V2"})
	require.NoError(t, h.Close())

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, schema.CPUTemperature, failed[0].Category)

	err := report.Err()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrCollection))
	assert.True(t, errors.HasCode(err, ErrCollector))

	assert.Equal(t, 1, countRows(t, cfg.Path, "mem"))
	assert.Equal(t, 2, countRows(t, cfg.Path, "netIfaces"))
	assert.Equal(t, 0, countRows(t, cfg.Path, "temperature"))
	assert.Equal(t, 1, countRows(t, cfg.Path, "fsIo"))
	assert.Equal(t, 1, countRows(t, cfg.Path, "fsHist_V1"))
	assert.Equal(t, 1, countRows(t, cfg.Path, "fsHist_V2"))

	assert.Equal(t, 0, src.count("gpuInfo"), "gpu is opt-in")
	assert.Len(t, report.Results, len(schema.Categories())-1+2)
}

func TestCollectAll_NoVolumes(t *testing.T) {
	_, h := testStore(t)
	src := newStubSource()
	svc := NewService(schema.NewCatalog(), src, WithGPU(true))

	report := svc.CollectAll(context.Background(), h, nil)
	require.NoError(t, report.Err())

	assert.Len(t, report.Results, len(schema.Categories()))
	assert.Equal(t, 1, src.count("gpuInfo"))
	for _, res := range report.Results {
		assert.NotEqual(t, schema.FilesystemHistory, res.Category)
	}
}

func TestCollectAll_Metrics(t *testing.T) {
	_, h := testStore(t)
	rec := metrics.NewRecorder()
	svc := NewService(schema.NewCatalog(), newStubSource("cpuTemp"), WithMetrics(rec))

	svc.CollectAll(context.Background(), h, nil)

	body := scrape(t, rec)
	assert.Contains(t, body, `sysmon_collections_total{category="memInfo",result="success"} 1`)
	assert.Contains(t, body, `sysmon_collections_total{category="cpuTemp",result="error"} 1`)
	assert.Contains(t, body, `sysmon_rows_written_total{category="netInfo"} 2`)
}

func scrape(t *testing.T, rec *metrics.Recorder) string {
	t.Helper()
	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestInitialize_ExistingStore(t *testing.T) {
	ctx := context.Background()
	cfg, h := testStore(t)
	svc := NewService(schema.NewCatalog(), newStubSource())

	_, err := svc.Collect(ctx, h, schema.CPULoad, "")
	require.NoError(t, err)
	require.NoError(t, h.Close())

	created, err := Initialize(ctx, cfg, []string{"V1"}, false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, countRows(t, cfg.Path, "cpu"), "existing data untouched")

	created, err = Initialize(ctx, cfg, []string{"V1"}, true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0, countRows(t, cfg.Path, "cpu"))
	assert.Equal(t, 0, countRows(t, cfg.Path, "fsHist_V1"))
}

func TestInitialize_InvalidPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := Initialize(context.Background(), store.DefaultConfig(filepath.Join(blocker, "x", "sysmon.db")), nil, false)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrStorageInit))
}

func failingBootstrap(t *testing.T) {
	t.Helper()
	orig := bootstrap
	bootstrap = func(ctx context.Context, h *store.Handle, c *schema.Catalog, ids []string) error {
		if err := orig(ctx, h, c, ids); err != nil {
			return err
		}
		return errors.New().New(store.ErrSchemaInit)
	}
	t.Cleanup(func() { bootstrap = orig })
}

func TestInitialize_FailedBootstrapRemovesStore(t *testing.T) {
	ctx := context.Background()
	cfg := store.DefaultConfig(filepath.Join(t.TempDir(), "sysmon.db"))

	failingBootstrap(t)
	created, err := Initialize(ctx, cfg, nil, false)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, store.ErrSchemaInit))
	assert.False(t, created)
	assert.NoFileExists(t, cfg.Path)
	assert.NoFileExists(t, cfg.Path+"-wal")

	bootstrap = store.Bootstrap
	created, err = Initialize(ctx, cfg, nil, false)
	require.NoError(t, err)
	assert.True(t, created, "the next init bootstraps again")
}

func TestInitialize_FailedForceKeepsStore(t *testing.T) {
	cfg, h := testStore(t)
	require.NoError(t, h.Close())

	failingBootstrap(t)
	_, err := Initialize(context.Background(), cfg, nil, true)
	require.Error(t, err)
	assert.FileExists(t, cfg.Path)
}

func TestListCurrentVolumeIDs(t *testing.T) {
	ids, err := ListCurrentVolumeIDs(context.Background(), newStubSource())
	require.NoError(t, err)
	assert.Equal(t, []string{"V1", "V2"}, ids)
}

func TestCollectInto(t *testing.T) {
	ctx := context.Background()
	cfg, h := testStore(t, "V1")
	require.NoError(t, h.Close())
	svc := NewService(schema.NewCatalog(), newStubSource())

	report, err := svc.CollectInto(ctx, cfg, "memInfo", nil)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Len(t, report.Results, 1)

	report, err = svc.CollectInto(ctx, cfg, "fsHist", []string{"V1"})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	report, err = svc.CollectInto(ctx, cfg, "fsHist", nil)
	require.NoError(t, err)
	assert.Empty(t, report.Results)

	report, err = svc.CollectInto(ctx, cfg, schema.AllName, []string{"V1"})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Equal(t, 2, countRows(t, cfg.Path, "mem"))
	assert.Equal(t, 2, countRows(t, cfg.Path, "fsHist_V1"))

	_, err = svc.CollectInto(ctx, cfg, "docker", nil)
	assert.True(t, errors.HasCode(err, ErrUnknownCategory))
}
