// Package collector samples the host for every telemetry category.
package collector

import (
	"context"
	"time"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/gpu"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/schema"
)

// Source produces the records of every category. Each method takes one
// sample; timestamps are taken when the method is called.
type Source interface {
	DeviceInfo(ctx context.Context) (schema.Device, error)
	Users(ctx context.Context) ([]schema.User, error)
	NetInterfaces(ctx context.Context) ([]schema.NetInterface, error)
	CPULoad(ctx context.Context) (schema.CPU, error)
	CPUTemperature(ctx context.Context) (schema.Temperature, error)
	Memory(ctx context.Context) (schema.Memory, error)
	Filesystems(ctx context.Context) ([]schema.Filesystem, error)
	FilesystemIO(ctx context.Context) (schema.FilesystemIO, error)
	GPUs(ctx context.Context) ([]schema.GPU, error)
	FilesystemHistory(ctx context.Context, volumeID string) (schema.VolumeUsage, error)
	VolumeIDs(ctx context.Context) ([]string, error)
}

// GPUSampler reads GPU state. *gpu.Sampler satisfies it.
type GPUSampler interface {
	Samples(ctx context.Context) ([]gpu.Sample, error)
}

const (
	ErrCollector = errors.ErrCollector

	defaultUUIDDir     = "/dev/disk/by-uuid"
	defaultCPUInterval = 500 * time.Millisecond

	// placeholder for partition attributes the host does not report
	noneValue    = "-None-"
	smartUnknown = "unknown"
)

// CollectorData is attached to every ErrCollector error
type CollectorData struct {
	Collector string
}

// Error wraps err as a failure of the named collector
func Error(collector string, err error) error {
	return errors.New().Wrap(ErrCollector, err).WithData(CollectorData{Collector: collector})
}

// CollectorOf returns the collector named by an ErrCollector error
func CollectorOf(err error) (string, bool) {
	var e errors.Error
	if !errors.As(err, &e) || e.Code() != ErrCollector {
		return "", false
	}
	data, ok := e.GetData().(CollectorData)
	return data.Collector, ok
}

type Option func(*Host)

// WithGPU enables the gpuInfo category
func WithGPU(s GPUSampler) Option {
	return func(h *Host) {
		h.gpu = s
	}
}

// WithUUIDDir overrides the directory listing volumes by UUID
func WithUUIDDir(dir string) Option {
	return func(h *Host) {
		h.uuidDir = dir
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Host) {
		h.now = now
	}
}

// WithCPUInterval sets the window CPU load is measured over
func WithCPUInterval(d time.Duration) Option {
	return func(h *Host) {
		h.cpuInterval = d
	}
}

// Host is the Source backed by the local machine
type Host struct {
	uuidDir     string
	gpu         GPUSampler
	now         func() time.Time
	cpuInterval time.Duration
	smart       smartReader
	leaseRoot   string
}

var _ Source = (*Host)(nil)

func NewHost(opts ...Option) *Host {
	h := &Host{
		uuidDir:     defaultUUIDDir,
		now:         time.Now,
		cpuInterval: defaultCPUInterval,
		smart:       smartctlStatus,
		leaseRoot:   "/",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) timestamp() int64 {
	return schema.Timestamp(h.now())
}
