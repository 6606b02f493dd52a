package collector

import (
	"os"
	"path/filepath"
)

// readVolumes maps volume UUIDs to their device path by resolving the
// symlinks of dir. A missing dir yields no volumes.
func readVolumes(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	volumes := make(map[string]string, len(entries))
	for _, e := range entries {
		target, err := os.Readlink(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		volumes[e.Name()] = filepath.Clean(target)
	}
	return volumes, nil
}
