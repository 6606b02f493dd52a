package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/logger"
)

const (
	smartOk      = "Ok"
	smartFailing = "Predicted Failure"

	smartTimeout = 5 * time.Second
)

// smartReader returns the SMART health of a whole disk such as /dev/sda
type smartReader func(ctx context.Context, device string) string

// smartctlStatus runs smartctl's health check. Hosts without smartctl, or
// disks it cannot query, report unknown.
func smartctlStatus(ctx context.Context, device string) string {
	bin, err := exec.LookPath("smartctl")
	if err != nil {
		return smartUnknown
	}

	ctx, cancel := context.WithTimeout(ctx, smartTimeout)
	defer cancel()

	// non-zero exit codes are a bitmask and still come with a report
	out, err := exec.CommandContext(ctx, bin, "--json=c", "-H", device).Output()
	if len(out) == 0 {
		logger.Debug().Err(err).Str("device", device).Msg("No SMART report")
		return smartUnknown
	}
	return parseSmartctl(out)
}

type smartctlReport struct {
	SmartStatus *struct {
		Passed *bool `json:"passed"`
	} `json:"smart_status"`
}

func parseSmartctl(out []byte) string {
	var r smartctlReport
	if err := json.Unmarshal(out, &r); err != nil || r.SmartStatus == nil || r.SmartStatus.Passed == nil {
		return smartUnknown
	}
	if *r.SmartStatus.Passed {
		return smartOk
	}
	return smartFailing
}

// leasePatterns are the lease files of dhcpcd, dhclient, NetworkManager and
// systemd-networkd, relative to the lease root. %[1]s is the interface name.
var leasePatterns = []string{
	"var/lib/dhcpcd/%[1]s.lease",
	"var/lib/dhcpcd/%[1]s-*.lease",
	"var/lib/dhcpcd/dhcpcd-%[1]s.lease",
	"var/lib/dhcpcd5/dhcpcd-%[1]s.lease",
	"var/lib/dhcp/dhclient*.%[1]s.leases",
	"var/lib/dhcp/dhclient-*-%[1]s.lease",
	"var/lib/NetworkManager/internal-*-%[1]s.lease",
	"var/lib/NetworkManager/dhclient-*-%[1]s.lease",
}

// hasLease reports whether a DHCP client holds a lease for the interface
func hasLease(root, name string, index int) bool {
	for _, pattern := range leasePatterns {
		matches, err := filepath.Glob(filepath.Join(root, fmt.Sprintf(pattern, name)))
		if err == nil && len(matches) > 0 {
			return true
		}
	}
	if index <= 0 {
		return false
	}
	matches, _ := filepath.Glob(filepath.Join(root, "run/systemd/netif/leases", strconv.Itoa(index)))
	return len(matches) > 0
}
