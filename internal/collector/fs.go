package collector

import (
	"path/filepath"
	"regexp"
	"sort"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/schema"
)

// partition is one mounted block device
type partition struct {
	Device      string
	FSType      string
	Label       string
	Mount       string
	UUID        string
	Size        uint64
	Used        uint64
	UsedPercent float64
	HasUsage    bool
}

// storageDevice is one physical disk. Name is the kernel name, e.g. sda.
type storageDevice struct {
	Name      string
	Vendor    string
	Model     string
	Interface string
	Type      string
	Size      uint64
	Removable bool
}

var (
	numberedPartition = regexp.MustCompile(`^((?:nvme\d+n\d+)|(?:mmcblk\d+)|(?:loop\d+)|(?:nbd\d+))p\d+$`)
	suffixedPartition = regexp.MustCompile(`^((?:s|h|v|xv)d[a-z]+)\d+$`)
)

func baseName(dev string) string {
	return filepath.Base(dev)
}

// parentDisk returns the disk a partition belongs to, by kernel name.
// Whole disks map to themselves.
func parentDisk(dev string) string {
	name := baseName(dev)
	if m := numberedPartition.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if m := suffixedPartition.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}

// disksFromPartitions is used when the platform cannot enumerate disks
func disksFromPartitions(parts []partition) []storageDevice {
	seen := make(map[string]bool)
	var out []storageDevice
	for _, p := range parts {
		name := parentDisk(p.Device)
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, storageDevice{Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// assembleFilesystem builds the fs row of one disk. Used and UsedPercentage
// come from the first partition reporting usage, -1 when none does.
func assembleFilesystem(ts int64, d storageDevice, parts []partition, smart string) schema.Filesystem {
	fs := schema.Filesystem{
		Timestamp:      ts,
		Name:           "/dev/" + d.Name,
		Size:           d.Size,
		Used:           -1,
		UsedPercentage: -1,
		Smart:          smart,
		Vendor:         d.Vendor,
		ModelName:      d.Model,
		Interface:      d.Interface,
		DiskType:       d.Type,
		Removable:      d.Removable,
	}

	for _, p := range parts {
		fs.FSType = append(fs.FSType, orNone(p.FSType))
		fs.Label = append(fs.Label, orNone(p.Label))
		fs.Mount = append(fs.Mount, orNone(p.Mount))
		fs.UUID = append(fs.UUID, orNone(p.UUID))
		fs.PartitionLabels = append(fs.PartitionLabels, orNone(p.Label))
		fs.Partitions = append(fs.Partitions, p.Size)

		if p.HasUsage && fs.Used < 0 {
			fs.Used = schema.ClampInt64(p.Used)
			fs.UsedPercentage = p.UsedPercent
		}
	}
	return fs
}

func orNone(s string) string {
	if s == "" {
		return noneValue
	}
	return s
}
