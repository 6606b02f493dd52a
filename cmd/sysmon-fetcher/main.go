package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/collector"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/config"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/gpu"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/logger"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/metrics"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/pid"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/schema"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/store"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/telemetry"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	appName         = "sysmon-fetcher"
	shutdownTimeout = 5 * time.Second
)

const usageText = `Usage: sysmon-fetcher [flags] <command> [args]

Commands:
  init                 create the store and its tables (--force recreates them)
  volumes              print the ids of the currently attached volumes
  collect <category>   sample one category, or "all", into the store
  run                  initialize, then collect "all" every interval
  schema               print the table layout as YAML

Flags:
`

type app struct {
	cfg      *config.Config
	catalog  *schema.Catalog
	source   collector.Source
	sampler  *gpu.Sampler
	recorder *metrics.Recorder
	service  *telemetry.Service
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			usage(os.Stdout)
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")

	if len(cfg.Args) == 0 {
		usage(os.Stderr)
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	a := newApp(cfg)
	defer a.cleanup()

	switch cmd := cfg.Args[0]; cmd {
	case "init":
		err = a.initialize(ctx)
	case "volumes":
		err = a.listVolumes(ctx, os.Stdout)
	case "collect":
		err = a.collect(ctx, cfg.Args[1:])
	case "run":
		err = a.loop(ctx)
	case "schema":
		err = writeSchema(os.Stdout, a.catalog)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage(os.Stderr)
		return 2
	}

	if err != nil {
		logger.ErrorWithCode(err).Str("command", cfg.Args[0]).Msg("Command failed")
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprint(w, usageText)
	fmt.Fprint(w, config.NewFlagSet(appName).FlagUsages())
}

func newApp(cfg *config.Config) *app {
	a := &app{
		cfg:     cfg,
		catalog: schema.NewCatalog(),
	}

	var hostOpts []collector.Option
	if cfg.GPU {
		a.sampler = gpu.NewSampler()
		if err := a.sampler.Initialize(); err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize NVML, GPU samples disabled")
			a.sampler = nil
		} else {
			hostOpts = append(hostOpts, collector.WithGPU(a.sampler))
		}
	}
	a.source = collector.NewHost(hostOpts...)

	if cfg.MetricsAddr != "" {
		a.recorder = metrics.NewRecorder()
	}

	a.service = telemetry.NewService(a.catalog, a.source,
		telemetry.WithGPU(a.sampler != nil),
		telemetry.WithConcurrency(cfg.Concurrency),
		telemetry.WithMetrics(a.recorder),
	)

	return a
}

func (a *app) storeConfig() store.Config {
	return store.Config{Path: a.cfg.DBPath, BusyTimeout: a.cfg.BusyTimeout}
}

// volumeIDs resolves the tracked volumes: explicit ids win, otherwise the
// currently attached ones when current is set
func (a *app) volumeIDs(ctx context.Context, current bool) ([]string, error) {
	if len(a.cfg.Volumes) > 0 {
		return a.cfg.Volumes, nil
	}
	if current || a.cfg.AllVolumes {
		return telemetry.ListCurrentVolumeIDs(ctx, a.source)
	}
	return nil, nil
}

func (a *app) initialize(ctx context.Context) error {
	ids, err := a.volumeIDs(ctx, true)
	if err != nil {
		return err
	}

	created, err := telemetry.Initialize(ctx, a.storeConfig(), ids, a.cfg.Force)
	if err != nil {
		return err
	}

	logger.Info().
		Str("path", a.cfg.DBPath).
		Bool("created", created).
		Strs("volumes", ids).
		Msg("Store initialized")

	return nil
}

func (a *app) listVolumes(ctx context.Context, w io.Writer) error {
	ids, err := telemetry.ListCurrentVolumeIDs(ctx, a.source)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

func (a *app) collect(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New().WithMessage(errors.ErrInvalidArgument, "collect needs exactly one category")
	}

	ids, err := a.volumeIDs(ctx, false)
	if err != nil {
		return err
	}

	report, err := a.service.CollectInto(ctx, a.storeConfig(), args[0], ids)
	if err != nil {
		return err
	}
	return report.Err()
}

func (a *app) loop(ctx context.Context) error {
	pidPath := pid.DefaultPath()
	if err := pid.Write(pidPath); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(pidPath); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ids, err := a.volumeIDs(ctx, true)
	if err != nil {
		return err
	}
	if _, err := telemetry.Initialize(ctx, a.storeConfig(), ids, a.cfg.Force); err != nil {
		return err
	}

	if a.recorder != nil {
		srv := a.serveMetrics()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Failed to stop metrics server")
			}
		}()
	}

	interval := time.Duration(a.cfg.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().
		Dur("interval", interval).
		Strs("volumes", ids).
		Msg("Collecting until interrupted")

	for {
		a.round(ctx, interval, ids)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// round collects everything once; a round may not outlive its interval
func (a *app) round(ctx context.Context, interval time.Duration, ids []string) {
	roundCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()

	report, err := a.service.CollectInto(roundCtx, a.storeConfig(), schema.AllName, ids)
	if err != nil {
		logger.ErrorWithCode(err).Msg("Collection round failed")
		return
	}
	if err := report.Err(); err != nil {
		logger.Warn().Err(err).Int("failed", len(report.Failed())).Msg("Collection round incomplete")
	}
}

func (a *app) serveMetrics() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.recorder.Handler())

	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", srv.Addr).Msg("Metrics server stopped")
		}
	}()
	logger.Info().Str("addr", srv.Addr).Msg("Serving metrics")

	return srv
}

func writeSchema(w io.Writer, catalog *schema.Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(catalog); err != nil {
		return err
	}
	return enc.Close()
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func (a *app) cleanup() {
	if a.sampler != nil {
		if err := a.sampler.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down NVML")
		}
	}
	logger.Debug().Msg("Exiting...")
}
