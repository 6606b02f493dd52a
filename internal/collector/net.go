package collector

import (
	"net"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/sensors"
)

// firstIPv4 returns the first IPv4 address of a list of CIDR or plain addresses
func firstIPv4(addrs []string) string {
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil {
			parsed, _, err := net.ParseCIDR(a)
			if err != nil {
				continue
			}
			ip = parsed
		}
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}

func interfaceType(name string, flags []string) string {
	for _, f := range flags {
		if f == "loopback" {
			return "virtual"
		}
	}
	if isWireless(name) {
		return "wireless"
	}
	return "wired"
}

// sensor keys of the CPU package across common drivers
var cpuSensorKeys = []string{
	"coretemp_package_id_0",
	"k10temp_tctl",
	"k10temp_tdie",
	"cpu_thermal",
	"cpu-thermal",
	"soc_thermal",
	"acpitz",
}

// mainTemperature picks the CPU package temperature, falling back to the
// hottest sensor reporting a positive value
func mainTemperature(stats []sensors.TemperatureStat) (float64, bool) {
	sorted := append([]sensors.TemperatureStat(nil), stats...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SensorKey < sorted[j].SensorKey })

	for _, key := range cpuSensorKeys {
		for _, s := range sorted {
			if strings.HasPrefix(strings.ToLower(s.SensorKey), key) && s.Temperature > 0 {
				return s.Temperature, true
			}
		}
	}

	positive := make([]float64, 0, len(stats))
	for _, s := range stats {
		if s.Temperature > 0 {
			positive = append(positive, s.Temperature)
		}
	}
	if len(positive) == 0 {
		return 0, false
	}
	sort.Float64s(positive)
	return positive[len(positive)-1], true
}
