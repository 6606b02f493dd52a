//go:build !linux

package collector

import "strings"

type product struct {
	Manufacturer string
	Model        string
	Version      string
	CPUVendor    string
	Distro       string
	Codename     string
}

// DMI data is only read on Linux; gopsutil fills in the rest
func readProduct() product {
	return product{}
}

func storageDevices() []storageDevice {
	return nil
}

func linkSpeed(string) string {
	return ""
}

func isWireless(name string) bool {
	return strings.HasPrefix(name, "wl")
}
