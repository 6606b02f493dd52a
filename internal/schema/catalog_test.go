package schema_test

import (
	"math"
	"testing"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestVolumeTableName(t *testing.T) {
	catalog := schema.NewCatalog()

	assert.Equal(t, "fsHist_?", catalog.VolumeTemplate())
	assert.Equal(t, "fsHist_ABCD-1234", catalog.VolumeTableName("ABCD-1234"))

	table := catalog.VolumeTable("ABCD-1234")
	assert.Equal(t, "fsHist_ABCD-1234", table.Name)
	assert.Equal(t, []string{"timestamp", "used", "smart"}, table.ColumnNames())
	assert.Equal(t, []schema.ColumnType{schema.Integer, schema.Integer, schema.Text}, table.ColumnTypes())
}

func TestFixedTableNames(t *testing.T) {
	catalog := schema.NewCatalog()

	want := map[schema.Category]string{
		schema.DeviceInfo:          "devInfo",
		schema.UserInfo:            "users",
		schema.NetworkInfo:         "netIfaces",
		schema.CPULoad:             "cpu",
		schema.CPUTemperature:      "temperature",
		schema.MemoryInfo:          "mem",
		schema.FilesystemInfo:      "fs",
		schema.FilesystemIOHistory: "fsIo",
		schema.GPUInfo:             "gpu",
	}
	for cat, name := range want {
		table, err := catalog.Table(cat)
		require.NoError(t, err, cat.String())
		assert.Equal(t, name, table.Name)
	}

	_, err := catalog.Table(schema.FilesystemHistory)
	assert.True(t, errors.HasCode(err, errors.ErrUnknownCategory))
}

func TestColumnsCorrespond(t *testing.T) {
	catalog := schema.NewCatalog()
	tables := append(catalog.Tables(), catalog.VolumeTable("V1"))

	for _, table := range tables {
		names, types := table.ColumnNames(), table.ColumnTypes()
		assert.NotEmpty(t, names, table.Name)
		assert.Len(t, types, len(names), table.Name)
		assert.Equal(t, "timestamp", names[0], table.Name)
	}
}

func TestMemoryColumns(t *testing.T) {
	table, err := schema.NewCatalog().Table(schema.MemoryInfo)
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamp", "used", "buffered", "cached", "swap", "swapTotal"}, table.ColumnNames())
}

func TestTablesIsACopy(t *testing.T) {
	catalog := schema.NewCatalog()

	tables := catalog.Tables()
	tables[0].Columns[0].Name = "mutated"

	again, err := catalog.Table(schema.DeviceInfo)
	require.NoError(t, err)
	assert.Equal(t, "timestamp", again.Columns[0].Name)
}

func TestRecordsMatchCatalog(t *testing.T) {
	catalog := schema.NewCatalog()

	records := map[schema.Category]schema.Record{
		schema.DeviceInfo:          schema.Device{},
		schema.UserInfo:            schema.User{},
		schema.NetworkInfo:         schema.NetInterface{},
		schema.CPULoad:             schema.CPU{},
		schema.CPUTemperature:      schema.Temperature{},
		schema.MemoryInfo:          schema.Memory{},
		schema.FilesystemInfo:      schema.Filesystem{},
		schema.FilesystemIOHistory: schema.FilesystemIO{},
		schema.GPUInfo:             schema.GPU{},
	}
	require.Len(t, records, len(schema.Categories()))

	for cat, rec := range records {
		table, err := catalog.Table(cat)
		require.NoError(t, err)
		assert.NoError(t, catalog.Validate(table, rec), cat.String())
	}

	assert.NoError(t, catalog.Validate(catalog.VolumeTable("V1"), schema.VolumeUsage{}))
}

type shortRecord struct{}

func (shortRecord) Values() []any { return []any{int64(1)} }

func TestValidateMismatch(t *testing.T) {
	catalog := schema.NewCatalog()
	table, err := catalog.Table(schema.MemoryInfo)
	require.NoError(t, err)

	err = catalog.Validate(table, shortRecord{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCollector))
	assert.Contains(t, err.Error(), "mem")

	assert.True(t, errors.HasCode(catalog.Validate(table, nil), errors.ErrCollector))
}

func TestMemoryValuesOrder(t *testing.T) {
	rec := schema.Memory{Timestamp: 42, Used: 100, Buffered: 10, Cached: 20, Swap: 0, SwapTotal: 0}
	assert.Equal(t, []any{int64(42), int64(100), int64(10), int64(20), int64(0), int64(0)}, rec.Values())
}

func TestClampInt64(t *testing.T) {
	assert.Equal(t, int64(7), schema.ClampInt64(7))
	assert.Equal(t, int64(math.MaxInt64), schema.ClampInt64(math.MaxInt64))
	assert.Equal(t, int64(math.MaxInt64), schema.ClampInt64(math.MaxUint64))

	rec := schema.Memory{Used: math.MaxUint64}
	assert.Equal(t, int64(math.MaxInt64), rec.Values()[1])
}

func TestFilesystemValues(t *testing.T) {
	rec := schema.Filesystem{
		Name:            "/dev/sda",
		FSType:          []string{"ext4", "vfat"},
		Label:           []string{"root", "-None-"},
		Mount:           []string{"/", "/boot"},
		Used:            -1,
		UsedPercentage:  -1,
		Removable:       true,
		PartitionLabels: []string{"root", "-None-"},
		Partitions:      []uint64{1000, 200},
	}

	values := rec.Values()
	assert.Equal(t, "ext4, vfat", values[2])
	assert.Equal(t, "/, /boot", values[4])
	assert.Equal(t, int64(-1), values[6])
	assert.Equal(t, 1, values[14])
	assert.Equal(t, "root,-None-", values[15])
	assert.Equal(t, "1000,200", values[16])
}

func TestParseCategory(t *testing.T) {
	for _, cat := range append(schema.Categories(), schema.FilesystemHistory) {
		parsed, err := schema.ParseCategory(cat.String())
		require.NoError(t, err)
		assert.Equal(t, cat, parsed)
	}

	assert.True(t, schema.FilesystemHistory.PerVolume())
	assert.False(t, schema.MemoryInfo.PerVolume())
	assert.True(t, schema.NetworkInfo.Batch())
	assert.True(t, schema.GPUInfo.Batch())
	assert.False(t, schema.MemoryInfo.Batch())
	assert.False(t, schema.FilesystemHistory.Batch())

	_, err := schema.ParseCategory("docker")
	assert.True(t, errors.HasCode(err, errors.ErrUnknownCategory))

	_, err = schema.ParseCategory(schema.AllName)
	assert.Error(t, err, "all is handled by the orchestrator, not the catalog")
}

func TestLayoutYAML(t *testing.T) {
	out, err := yaml.Marshal(schema.NewCatalog().Layout())
	require.NoError(t, err)

	var back schema.Layout
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Len(t, back.Tables, len(schema.Categories()))
	assert.Equal(t, "fsHist_?", back.VolumeTemplate)
	assert.Contains(t, string(out), "name: swapTotal")
}
