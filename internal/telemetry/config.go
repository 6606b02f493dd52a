package telemetry

import "github.com/RPi-WebTools/sysmon-fetcher/internal/metrics"

const defaultConcurrency = 4

type Option func(*Service)

// WithMetrics records every collection on r
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = r
	}
}

// WithGPU includes the gpuInfo category in CollectAll
func WithGPU(enabled bool) Option {
	return func(s *Service) {
		s.gpu = enabled
	}
}

// WithConcurrency bounds how many categories CollectAll samples at once.
// Values below 1 keep the default.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}
