//go:build linux

package collector

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/zcalusic/sysinfo"
)

const (
	sysBlock    = "/sys/block"
	sysNet      = "/sys/class/net"
	osRelease   = "/etc/os-release"
	sectorBytes = 512
)

type product struct {
	Manufacturer string
	Model        string
	Version      string
	CPUVendor    string
	Distro       string
	Codename     string
}

var (
	productInfo product
	productOnce sync.Once
)

// readProduct gathers DMI and OS identity once per process
func readProduct() product {
	productOnce.Do(func() {
		var si sysinfo.SysInfo
		si.GetSysInfo()

		productInfo = product{
			Manufacturer: si.Product.Vendor,
			Model:        si.Product.Name,
			Version:      si.Product.Version,
			CPUVendor:    si.CPU.Vendor,
			Distro:       si.OS.Name,
			Codename:     osReleaseValue(osRelease, "VERSION_CODENAME"),
		}
		if productInfo.Manufacturer == "" {
			productInfo.Manufacturer = si.Board.Vendor
		}
		if productInfo.Model == "" {
			// Raspberry Pi and other device tree boards
			productInfo.Model = readSysfs("/proc/device-tree/model")
		}
	})
	return productInfo
}

func storageDevices() []storageDevice {
	var si sysinfo.SysInfo
	si.GetSysInfo()

	out := make([]storageDevice, 0, len(si.Storage))
	for _, s := range si.Storage {
		d := storageDevice{
			Name:      s.Name,
			Vendor:    s.Vendor,
			Model:     s.Model,
			Interface: s.Driver,
			Type:      diskType(s.Name),
			Removable: readSysfs(filepath.Join(sysBlock, s.Name, "removable")) == "1",
		}
		if sectors, err := strconv.ParseUint(readSysfs(filepath.Join(sysBlock, s.Name, "size")), 10, 64); err == nil {
			d.Size = sectors * sectorBytes
		} else {
			d.Size = uint64(s.Size) * 1000 * 1000 * 1000
		}
		out = append(out, d)
	}
	return out
}

func diskType(name string) string {
	switch readSysfs(filepath.Join(sysBlock, name, "queue", "rotational")) {
	case "0":
		return "SSD"
	case "1":
		return "HD"
	default:
		return ""
	}
}

// linkSpeed returns the negotiated speed in Mbit/s, empty when unknown
func linkSpeed(name string) string {
	speed := readSysfs(filepath.Join(sysNet, name, "speed"))
	if n, err := strconv.Atoi(speed); err != nil || n <= 0 {
		return ""
	}
	return speed
}

func isWireless(name string) bool {
	if _, err := os.Stat(filepath.Join(sysNet, name, "wireless")); err == nil {
		return true
	}
	return strings.HasPrefix(name, "wl")
}

func readSysfs(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(string(b)), "\x00")
}

func osReleaseValue(path, key string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		k, v, ok := strings.Cut(scanner.Text(), "=")
		if ok && k == key {
			return strings.Trim(v, `"'`)
		}
	}
	return ""
}
