package config

import (
	"strings"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultDBPath      = "/var/lib/sysmon-fetcher/sysmon.db"
	DefaultInterval    = 60
	DefaultConcurrency = 4
	DefaultBusyTimeout = 5000

	configName       = "sysmon-fetcher"
	defaultEnvPrefix = "SYSMON"
)

type Config struct {
	DBPath      string   `mapstructure:"db_path"`
	Interval    int      `mapstructure:"interval"`
	Volumes     []string `mapstructure:"volumes"`
	AllVolumes  bool     `mapstructure:"all_volumes"`
	GPU         bool     `mapstructure:"gpu"`
	Concurrency int      `mapstructure:"concurrency"`
	MetricsAddr string   `mapstructure:"metrics_addr"`
	BusyTimeout int      `mapstructure:"busy_timeout"`
	Force       bool     `mapstructure:"force"`
	Debug       bool     `mapstructure:"debug"`
	Verbose     bool     `mapstructure:"verbose"`

	// Args holds the positional arguments left after flag parsing
	Args []string `mapstructure:"-"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"db-path":      "db_path",
	"interval":     "interval",
	"volume":       "volumes",
	"all-volumes":  "all_volumes",
	"gpu":          "gpu",
	"concurrency":  "concurrency",
	"metrics-addr": "metrics_addr",
	"busy-timeout": "busy_timeout",
	"force":        "force",
	"debug":        "debug",
	"verbose":      "verbose",
}

// NewFlagSet returns the command line flags understood by Load
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to the configuration file")
	fs.String("db-path", DefaultDBPath, "Path to the SQLite store")
	fs.Int("interval", DefaultInterval, "Seconds between collection rounds in run mode")
	fs.StringSlice("volume", nil, "Volume identifier to track (repeatable)")
	fs.Bool("all-volumes", false, "Track every currently attached volume")
	fs.Bool("gpu", false, "Include NVIDIA GPU samples in collection rounds")
	fs.Int("concurrency", DefaultConcurrency, "Maximum categories collected in parallel")
	fs.String("metrics-addr", "", "Listen address for the Prometheus endpoint in run mode")
	fs.Int("busy-timeout", DefaultBusyTimeout, "SQLite busy timeout in milliseconds")
	fs.Bool("force", false, "Recreate the schema even if the store exists")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	return fs
}

// Load merges defaults, the config file, SYSMON_* environment variables and
// the given command line arguments, in increasing order of precedence.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix:   defaultEnvPrefix,
		searchPaths: []string{"/etc", "."},
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	fs := NewFlagSet(configName)
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for flagName, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		o.configPath = path
	} else if path := v.GetString("config"); path != "" {
		o.configPath = path
	}

	if err := readConfigFile(v, o); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}
	cfg.Args = fs.Args()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, o *options) error {
	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errors.New().Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType("toml")
	for _, p := range o.searchPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.New().Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

// Validate checks values that would make a run impossible
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.DBPath == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "db_path must not be empty")
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.Concurrency <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "concurrency must be positive")
	}
	if c.BusyTimeout < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "busy_timeout must not be negative")
	}

	return nil
}
