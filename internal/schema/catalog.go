// Package schema describes every table the fetcher writes: its name, its
// ordered columns and the record type that fills it.
package schema

import (
	"strings"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
)

// ColumnType is the declared SQLite type of a column
type ColumnType string

const (
	Integer ColumnType = "INTEGER"
	Real    ColumnType = "REAL"
	Text    ColumnType = "TEXT"
	Bit     ColumnType = "BIT"
)

// VolumePlaceholder is replaced by the volume identifier in the volume table template
const VolumePlaceholder = "?"

type Column struct {
	Name string     `yaml:"name"`
	Type ColumnType `yaml:"type"`
}

type Table struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
}

// ColumnNames returns the column names in declared order
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnTypes returns the column types, positionally matching ColumnNames
func (t Table) ColumnTypes() []ColumnType {
	types := make([]ColumnType, len(t.Columns))
	for i, c := range t.Columns {
		types[i] = c.Type
	}
	return types
}

// Catalog is the immutable table registry. Build it once with NewCatalog
// and share the pointer.
type Catalog struct {
	fixed          map[Category]Table
	volumeTemplate string
	volumeColumns  []Column
}

// NewCatalog returns the catalog of every table the fetcher knows about
func NewCatalog() *Catalog {
	return &Catalog{
		fixed: map[Category]Table{
			DeviceInfo: {Name: "devInfo", Columns: []Column{
				{"timestamp", Integer},
				{"manufacturer", Text},
				{"model", Text},
				{"version", Text},
				{"cpuManufacturer", Text},
				{"cpuCores", Text},
				{"memory", Text},
				{"osDistro", Text},
				{"osCode", Text},
				{"osHostname", Text},
				{"uptime", Text},
			}},
			UserInfo: {Name: "users", Columns: []Column{
				{"timestamp", Integer},
				{"user", Text},
				{"terminal", Text},
				{"loginDate", Text},
				{"loginTime", Text},
				{"ip", Text},
				{"lastCmd", Text},
			}},
			NetworkInfo: {Name: "netIfaces", Columns: []Column{
				{"timestamp", Integer},
				{"iface", Text},
				{"ip", Text},
				{"mac", Text},
				{"type", Text},
				{"speed", Text},
				{"dhcp", Text},
				{"rx", Real},
				{"tx", Real},
			}},
			CPULoad: {Name: "cpu", Columns: []Column{
				{"timestamp", Integer},
				{"cpuLoad", Real},
			}},
			CPUTemperature: {Name: "temperature", Columns: []Column{
				{"timestamp", Integer},
				{"temperature", Real},
			}},
			MemoryInfo: {Name: "mem", Columns: []Column{
				{"timestamp", Integer},
				{"used", Integer},
				{"buffered", Integer},
				{"cached", Integer},
				{"swap", Integer},
				{"swapTotal", Integer},
			}},
			FilesystemInfo: {Name: "fs", Columns: []Column{
				{"timestamp", Integer},
				{"name", Text},
				{"fsType", Text},
				{"label", Text},
				{"mount", Text},
				{"size", Integer},
				{"used", Integer},
				{"usedPercentage", Real},
				{"uuid", Text},
				{"smart", Text},
				{"vendor", Text},
				{"modelName", Text},
				{"interface", Text},
				{"diskType", Text},
				{"removable", Bit},
				{"partitionLabels", Text},
				{"partitions", Text},
			}},
			FilesystemIOHistory: {Name: "fsIo", Columns: []Column{
				{"timestamp", Integer},
				{"rx", Integer},
				{"tx", Integer},
			}},
			GPUInfo: {Name: "gpu", Columns: []Column{
				{"timestamp", Integer},
				{"gpuIndex", Integer},
				{"name", Text},
				{"uuid", Text},
				{"temperature", Integer},
				{"fanSpeed", Integer},
				{"powerLimit", Integer},
			}},
		},
		volumeTemplate: "fsHist_" + VolumePlaceholder,
		volumeColumns: []Column{
			{"timestamp", Integer},
			{"used", Integer},
			{"smart", Text},
		},
	}
}

// Table returns the table of a fixed category. Per-volume categories must
// go through VolumeTable.
func (c *Catalog) Table(cat Category) (Table, error) {
	t, ok := c.fixed[cat]
	if !ok {
		return Table{}, errors.New().WithData(errors.ErrUnknownCategory, cat.String())
	}
	return copyTable(t), nil
}

// Tables returns every fixed table in bootstrap order
func (c *Catalog) Tables() []Table {
	out := make([]Table, 0, len(c.fixed))
	for _, cat := range Categories() {
		out = append(out, copyTable(c.fixed[cat]))
	}
	return out
}

// VolumeTemplate returns the per-volume table name template
func (c *Catalog) VolumeTemplate() string {
	return c.volumeTemplate
}

// VolumeTableName substitutes volumeID into the template
func (c *Catalog) VolumeTableName(volumeID string) string {
	return strings.Replace(c.volumeTemplate, VolumePlaceholder, volumeID, 1)
}

// VolumeTable returns the history table of one volume
func (c *Catalog) VolumeTable(volumeID string) Table {
	return Table{
		Name:    c.VolumeTableName(volumeID),
		Columns: append([]Column(nil), c.volumeColumns...),
	}
}

// VolumeTables resolves the history tables of every given volume
func (c *Catalog) VolumeTables(volumeIDs []string) []Table {
	out := make([]Table, 0, len(volumeIDs))
	for _, id := range volumeIDs {
		out = append(out, c.VolumeTable(id))
	}
	return out
}

// Validate checks that rec carries exactly one value per column of t
func (c *Catalog) Validate(t Table, rec Record) error {
	if rec == nil {
		return errors.New().WithMessage(errors.ErrCollector, "nil record for table "+t.Name)
	}
	if got, want := len(rec.Values()), len(t.Columns); got != want {
		return errors.New().WithData(errors.ErrCollector, struct {
			Table  string
			Values int
			Want   int
		}{
			Table:  t.Name,
			Values: got,
			Want:   want,
		})
	}
	return nil
}

// Layout is the serializable view of the whole catalog
type Layout struct {
	Tables         []Table  `yaml:"tables"`
	VolumeTemplate string   `yaml:"volume_template"`
	VolumeColumns  []Column `yaml:"volume_columns"`
}

// Layout returns a copy of the catalog suitable for printing
func (c *Catalog) Layout() Layout {
	return Layout{
		Tables:         c.Tables(),
		VolumeTemplate: c.volumeTemplate,
		VolumeColumns:  append([]Column(nil), c.volumeColumns...),
	}
}

func copyTable(t Table) Table {
	return Table{Name: t.Name, Columns: append([]Column(nil), t.Columns...)}
}

// MarshalYAML renders the catalog through its Layout
func (c *Catalog) MarshalYAML() (any, error) {
	return c.Layout(), nil
}
