package schema

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one row of a category. Values returns the fields in the
// declared column order of the category's table.
type Record interface {
	Values() []any
}

// Timestamp converts a sampling time to the stored representation (Unix ms)
func Timestamp(t time.Time) int64 {
	return t.UnixMilli()
}

// AsRecords widens a typed batch to the Record interface
func AsRecords[T Record](items []T) []Record {
	out := make([]Record, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

type Device struct {
	Timestamp       int64
	Manufacturer    string
	Model           string
	Version         string
	CPUManufacturer string
	CPUCores        int
	Memory          uint64
	OSDistro        string
	OSCode          string
	OSHostname      string
	Uptime          uint64
}

func (r Device) Values() []any {
	return []any{
		r.Timestamp,
		r.Manufacturer,
		r.Model,
		r.Version,
		r.CPUManufacturer,
		strconv.Itoa(r.CPUCores),
		strconv.FormatUint(r.Memory, 10),
		r.OSDistro,
		r.OSCode,
		r.OSHostname,
		strconv.FormatUint(r.Uptime, 10),
	}
}

type User struct {
	Timestamp int64
	User      string
	Terminal  string
	LoginDate string
	LoginTime string
	IP        string
	LastCmd   string
}

func (r User) Values() []any {
	return []any{r.Timestamp, r.User, r.Terminal, r.LoginDate, r.LoginTime, r.IP, r.LastCmd}
}

type NetInterface struct {
	Timestamp int64
	Iface     string
	IP        string
	MAC       string
	Type      string
	Speed     string
	DHCP      bool
	RX        float64
	TX        float64
}

func (r NetInterface) Values() []any {
	return []any{r.Timestamp, r.Iface, r.IP, r.MAC, r.Type, r.Speed, boolToInt(r.DHCP), r.RX, r.TX}
}

type CPU struct {
	Timestamp int64
	Load      float64
}

func (r CPU) Values() []any {
	return []any{r.Timestamp, r.Load}
}

type Temperature struct {
	Timestamp   int64
	Temperature float64
}

func (r Temperature) Values() []any {
	return []any{r.Timestamp, r.Temperature}
}

type Memory struct {
	Timestamp int64
	Used      uint64
	Buffered  uint64
	Cached    uint64
	Swap      uint64
	SwapTotal uint64
}

func (r Memory) Values() []any {
	return []any{
		r.Timestamp,
		ClampInt64(r.Used),
		ClampInt64(r.Buffered),
		ClampInt64(r.Cached),
		ClampInt64(r.Swap),
		ClampInt64(r.SwapTotal),
	}
}

// Filesystem describes one physical disk and its partitions. Used and
// UsedPercentage are -1 when no mounted filesystem reports usage.
type Filesystem struct {
	Timestamp       int64
	Name            string
	FSType          []string
	Label           []string
	Mount           []string
	Size            uint64
	Used            int64
	UsedPercentage  float64
	UUID            []string
	Smart           string
	Vendor          string
	ModelName       string
	Interface       string
	DiskType        string
	Removable       bool
	PartitionLabels []string
	Partitions      []uint64
}

func (r Filesystem) Values() []any {
	sizes := make([]string, len(r.Partitions))
	for i, p := range r.Partitions {
		sizes[i] = strconv.FormatUint(p, 10)
	}

	return []any{
		r.Timestamp,
		r.Name,
		strings.Join(r.FSType, ", "),
		strings.Join(r.Label, ", "),
		strings.Join(r.Mount, ", "),
		ClampInt64(r.Size),
		r.Used,
		r.UsedPercentage,
		strings.Join(r.UUID, ", "),
		r.Smart,
		r.Vendor,
		r.ModelName,
		r.Interface,
		r.DiskType,
		boolToInt(r.Removable),
		strings.Join(r.PartitionLabels, ","),
		strings.Join(sizes, ","),
	}
}

type FilesystemIO struct {
	Timestamp int64
	RX        uint64
	TX        uint64
}

func (r FilesystemIO) Values() []any {
	return []any{r.Timestamp, ClampInt64(r.RX), ClampInt64(r.TX)}
}

// VolumeUsage is one sample of a volume's history table
type VolumeUsage struct {
	Timestamp   int64
	UsedPercent float64
	Smart       string
}

func (r VolumeUsage) Values() []any {
	return []any{r.Timestamp, r.UsedPercent, r.Smart}
}

type GPU struct {
	Timestamp   int64
	Index       int
	Name        string
	UUID        string
	Temperature int
	FanSpeed    int
	PowerLimit  int
}

func (r GPU) Values() []any {
	return []any{r.Timestamp, r.Index, r.Name, r.UUID, r.Temperature, r.FanSpeed, r.PowerLimit}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ClampInt64 caps v at MaxInt64. database/sql rejects larger uint64 values.
func ClampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
