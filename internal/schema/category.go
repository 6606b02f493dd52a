package schema

import "github.com/RPi-WebTools/sysmon-fetcher/internal/errors"

// Category is one kind of telemetry sample with a fixed column layout
type Category int

const (
	DeviceInfo Category = iota
	UserInfo
	NetworkInfo
	CPULoad
	CPUTemperature
	MemoryInfo
	FilesystemInfo
	FilesystemIOHistory
	GPUInfo
	FilesystemHistory
)

// AllName is the pseudo category selecting every category at once
const AllName = "all"

var categoryNames = [...]string{
	DeviceInfo:          "devInfo",
	UserInfo:            "userInfo",
	NetworkInfo:         "netInfo",
	CPULoad:             "cpuInfo",
	CPUTemperature:      "cpuTemp",
	MemoryInfo:          "memInfo",
	FilesystemInfo:      "fsInfo",
	FilesystemIOHistory: "fsIoHist",
	GPUInfo:             "gpuInfo",
	FilesystemHistory:   "fsHist",
}

// String returns the name used on the command line
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// PerVolume reports whether the category is stored in one table per volume
func (c Category) PerVolume() bool {
	return c == FilesystemHistory
}

// Batch reports whether one sample of the category yields several rows
func (c Category) Batch() bool {
	switch c {
	case UserInfo, NetworkInfo, FilesystemInfo, GPUInfo:
		return true
	default:
		return false
	}
}

// ParseCategory resolves a command line name to its category
func ParseCategory(name string) (Category, error) {
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return 0, errors.New().WithData(errors.ErrUnknownCategory, name)
}

// Categories lists the categories with a fixed table, in bootstrap order
func Categories() []Category {
	return []Category{
		DeviceInfo,
		UserInfo,
		NetworkInfo,
		CPULoad,
		CPUTemperature,
		MemoryInfo,
		FilesystemInfo,
		FilesystemIOHistory,
		GPUInfo,
	}
}
