package collector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/logger"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/schema"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"
)

func (h *Host) DeviceInfo(ctx context.Context) (schema.Device, error) {
	ts := h.timestamp()

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return schema.Device{}, Error("devInfo", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return schema.Device{}, Error("devInfo", err)
	}

	cores, err := cpu.CountsWithContext(ctx, false)
	if err != nil {
		return schema.Device{}, Error("devInfo", err)
	}

	p := readProduct()
	if p.CPUVendor == "" {
		if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
			p.CPUVendor = cpus[0].VendorID
		}
	}
	if p.Distro == "" {
		p.Distro = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	}

	return schema.Device{
		Timestamp:       ts,
		Manufacturer:    p.Manufacturer,
		Model:           p.Model,
		Version:         p.Version,
		CPUManufacturer: p.CPUVendor,
		CPUCores:        cores,
		Memory:          vm.Total,
		OSDistro:        p.Distro,
		OSCode:          p.Codename,
		OSHostname:      info.Hostname,
		Uptime:          info.Uptime,
	}, nil
}

func (h *Host) Users(ctx context.Context) ([]schema.User, error) {
	ts := h.timestamp()

	users, err := host.UsersWithContext(ctx)
	if err != nil {
		return nil, Error("userInfo", err)
	}

	out := make([]schema.User, 0, len(users))
	for _, u := range users {
		started := time.Unix(int64(u.Started), 0)
		out = append(out, schema.User{
			Timestamp: ts,
			User:      u.User,
			Terminal:  u.Terminal,
			LoginDate: started.Format("2006-01-02"),
			LoginTime: started.Format("15:04"),
			IP:        u.Host,
		})
	}
	return out, nil
}

func (h *Host) NetInterfaces(ctx context.Context) ([]schema.NetInterface, error) {
	ts := h.timestamp()

	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, Error("netInfo", err)
	}

	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, Error("netInfo", err)
	}
	byName := make(map[string]net.IOCountersStat, len(counters))
	for _, c := range counters {
		byName[strings.ToLower(c.Name)] = c
	}

	out := make([]schema.NetInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs := make([]string, 0, len(iface.Addrs))
		for _, a := range iface.Addrs {
			addrs = append(addrs, a.Addr)
		}

		rec := schema.NetInterface{
			Timestamp: ts,
			Iface:     iface.Name,
			IP:        firstIPv4(addrs),
			MAC:       iface.HardwareAddr,
			Type:      interfaceType(iface.Name, iface.Flags),
			Speed:     linkSpeed(iface.Name),
			DHCP:      hasLease(h.leaseRoot, iface.Name, iface.Index),
		}
		if c, ok := byName[strings.ToLower(iface.Name)]; ok {
			rec.RX = float64(c.BytesRecv)
			rec.TX = float64(c.BytesSent)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (h *Host) CPULoad(ctx context.Context) (schema.CPU, error) {
	ts := h.timestamp()

	percent, err := cpu.PercentWithContext(ctx, h.cpuInterval, false)
	if err != nil {
		return schema.CPU{}, Error("cpuInfo", err)
	}
	if len(percent) == 0 {
		return schema.CPU{}, Error("cpuInfo", fmt.Errorf("no cpu load reported"))
	}

	return schema.CPU{Timestamp: ts, Load: percent[0]}, nil
}

func (h *Host) CPUTemperature(ctx context.Context) (schema.Temperature, error) {
	ts := h.timestamp()

	// partial results come back together with a warnings error
	stats, err := sensors.TemperaturesWithContext(ctx)
	if err != nil && len(stats) == 0 {
		return schema.Temperature{}, Error("cpuTemp", err)
	}

	temp, ok := mainTemperature(stats)
	if !ok {
		return schema.Temperature{}, Error("cpuTemp", fmt.Errorf("no temperature sensors found"))
	}

	return schema.Temperature{Timestamp: ts, Temperature: temp}, nil
}

func (h *Host) Memory(ctx context.Context) (schema.Memory, error) {
	ts := h.timestamp()

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return schema.Memory{}, Error("memInfo", err)
	}

	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return schema.Memory{}, Error("memInfo", err)
	}

	return schema.Memory{
		Timestamp: ts,
		Used:      vm.Used,
		Buffered:  vm.Buffers,
		Cached:    vm.Cached,
		Swap:      swap.Used,
		SwapTotal: swap.Total,
	}, nil
}

func (h *Host) Filesystems(ctx context.Context) ([]schema.Filesystem, error) {
	ts := h.timestamp()

	parts, err := h.partitions(ctx)
	if err != nil {
		return nil, Error("fsInfo", err)
	}

	disks := storageDevices()
	if len(disks) == 0 {
		disks = disksFromPartitions(parts)
	}

	out := make([]schema.Filesystem, 0, len(disks))
	for _, d := range disks {
		var own []partition
		for _, p := range parts {
			if parentDisk(p.Device) == d.Name && baseName(p.Device) != d.Name {
				own = append(own, p)
			}
		}
		out = append(out, assembleFilesystem(ts, d, own, h.smart(ctx, "/dev/"+d.Name)))
	}
	return out, nil
}

func (h *Host) FilesystemIO(ctx context.Context) (schema.FilesystemIO, error) {
	ts := h.timestamp()

	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return schema.FilesystemIO{}, Error("fsIoHist", err)
	}

	rec := schema.FilesystemIO{Timestamp: ts}
	for name, c := range counters {
		// partitions are already counted by their disk
		if parentDisk(name) != name {
			continue
		}
		rec.RX += c.ReadBytes
		rec.TX += c.WriteBytes
	}
	return rec, nil
}

func (h *Host) GPUs(ctx context.Context) ([]schema.GPU, error) {
	if h.gpu == nil {
		return nil, nil
	}
	ts := h.timestamp()

	samples, err := h.gpu.Samples(ctx)
	if err != nil {
		return nil, Error("gpuInfo", err)
	}

	out := make([]schema.GPU, 0, len(samples))
	for _, s := range samples {
		out = append(out, schema.GPU{
			Timestamp:   ts,
			Index:       s.Index,
			Name:        s.Name,
			UUID:        s.UUID,
			Temperature: s.Temperature,
			FanSpeed:    s.FanSpeed,
			PowerLimit:  s.PowerLimit,
		})
	}
	return out, nil
}

func (h *Host) FilesystemHistory(ctx context.Context, volumeID string) (schema.VolumeUsage, error) {
	ts := h.timestamp()

	volumes, err := readVolumes(h.uuidDir)
	if err != nil {
		return schema.VolumeUsage{}, Error("fsHist", err)
	}

	dev, ok := volumes[volumeID]
	if !ok {
		return schema.VolumeUsage{}, Error("fsHist", fmt.Errorf("volume %s not found", volumeID))
	}

	parts, err := h.partitions(ctx)
	if err != nil {
		return schema.VolumeUsage{}, Error("fsHist", err)
	}

	for _, p := range parts {
		if p.Device == dev && p.HasUsage {
			return schema.VolumeUsage{
				Timestamp:   ts,
				UsedPercent: p.UsedPercent,
				Smart:       h.smart(ctx, "/dev/"+parentDisk(dev)),
			}, nil
		}
	}

	return schema.VolumeUsage{}, Error("fsHist", fmt.Errorf("volume %s (%s) is not mounted", volumeID, dev))
}

func (h *Host) VolumeIDs(_ context.Context) ([]string, error) {
	volumes, err := readVolumes(h.uuidDir)
	if err != nil {
		return nil, Error("volumes", err)
	}

	ids := make([]string, 0, len(volumes))
	for id := range volumes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// partitions lists mounted partitions with their usage and UUID
func (h *Host) partitions(ctx context.Context) ([]partition, error) {
	stats, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	volumes, err := readVolumes(h.uuidDir)
	if err != nil {
		logger.Debug().Err(err).Str("dir", h.uuidDir).Msg("Failed to read volume ids")
	}
	uuids := make(map[string]string, len(volumes))
	for id, dev := range volumes {
		uuids[dev] = id
	}

	out := make([]partition, 0, len(stats))
	seen := make(map[string]bool, len(stats))
	for _, s := range stats {
		// bind mounts repeat the device
		if seen[s.Device] || !strings.HasPrefix(s.Device, "/dev/") {
			continue
		}
		seen[s.Device] = true

		p := partition{
			Device: s.Device,
			FSType: s.Fstype,
			Mount:  s.Mountpoint,
			UUID:   uuids[s.Device],
		}
		if label, err := disk.LabelWithContext(ctx, baseName(s.Device)); err == nil {
			p.Label = label
		}
		if usage, err := disk.UsageWithContext(ctx, s.Mountpoint); err == nil {
			p.Size = usage.Total
			p.Used = usage.Used
			p.UsedPercent = usage.UsedPercent
			p.HasUsage = true
		} else {
			logger.Debug().Err(err).Str("mount", s.Mountpoint).Msg("Failed to read filesystem usage")
		}
		out = append(out, p)
	}
	return out, nil
}
