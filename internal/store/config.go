package store

import "github.com/RPi-WebTools/sysmon-fetcher/internal/errors"

const (
	defaultDirPerm     = 0o755
	defaultBusyTimeout = 5000
)

type Config struct {
	// Path is the SQLite file backing the handle
	Path string
	// BusyTimeout is how long, in milliseconds, SQLite waits on a locked database
	BusyTimeout int
}

func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		BusyTimeout: defaultBusyTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Path == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "store path must not be empty")
	}
	if c.BusyTimeout < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "busy timeout must not be negative")
	}
	return nil
}

func (c Config) dsn() string {
	return c.Path + "?_busy_timeout=" + itoa(c.BusyTimeout)
}
