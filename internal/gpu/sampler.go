// Package gpu reads the state of NVIDIA GPUs through NVML.
package gpu

import (
	"context"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/logger"
)

const milliWattsToWatts = 1000

// Sample is the state of one device at one point in time. FanSpeed is the
// mean over all fans in percent; FanSpeed and PowerLimit are 0 when the
// device does not report them.
type Sample struct {
	Index       int
	Name        string
	UUID        string
	Temperature int
	FanSpeed    int
	PowerLimit  int
}

// Sampler reads every NVML device. It never changes device settings.
type Sampler struct {
	nvml nvmlController
	mu   sync.Mutex
}

func NewSampler() *Sampler {
	return &Sampler{nvml: &nvmlWrapper{}}
}

func (s *Sampler) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.nvml.Initialize(); err != nil {
		return err
	}

	count, err := s.nvml.GetDeviceCount()
	if err != nil {
		return err
	}
	logger.Debug().Int("devices", count).Msg("NVML initialized")

	return nil
}

func (s *Sampler) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nvml.Shutdown()
}

// Samples reads all devices in index order
func (s *Sampler) Samples(ctx context.Context) ([]Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.nvml.GetDeviceCount()
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dev, err := s.nvml.GetDevice(i)
		if err != nil {
			return nil, err
		}

		sample, err := readDevice(i, dev)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}

	return samples, nil
}

func readDevice(index int, dev device) (Sample, error) {
	errFactory := errors.New()
	sample := Sample{Index: index}

	name, ret := dev.GetName()
	if !IsNVMLSuccess(ret) {
		return Sample{}, errFactory.Wrap(ErrDeviceInfoFailed, newNVMLError(ret)).WithData(index)
	}
	sample.Name = name

	uuid, ret := dev.GetUUID()
	if !IsNVMLSuccess(ret) {
		return Sample{}, errFactory.Wrap(ErrDeviceInfoFailed, newNVMLError(ret)).WithData(index)
	}
	sample.UUID = uuid

	temp, ret := dev.GetTemperature(nvml.TEMPERATURE_GPU)
	if !IsNVMLSuccess(ret) {
		return Sample{}, errFactory.Wrap(ErrTemperatureReadFailed, newNVMLError(ret)).WithData(index)
	}
	sample.Temperature = int(temp)

	sample.FanSpeed = meanFanSpeed(index, dev)

	limit, ret := dev.GetPowerManagementLimit()
	switch {
	case IsNVMLSuccess(ret):
		sample.PowerLimit = int(limit / milliWattsToWatts)
	case isNotSupported(ret):
	default:
		logger.Debug().Int("gpu", index).Str("error", nvml.ErrorString(ret)).Msg("Failed to read power limit")
	}

	return sample, nil
}

// Passively cooled devices report no fans
func meanFanSpeed(index int, dev device) int {
	fans, ret := dev.GetNumFans()
	if !IsNVMLSuccess(ret) || fans <= 0 {
		return 0
	}

	var sum, read int
	for f := 0; f < fans; f++ {
		speed, ret := dev.GetFanSpeed_v2(f)
		if !IsNVMLSuccess(ret) {
			logger.Debug().Int("gpu", index).Int("fan", f).Str("error", nvml.ErrorString(ret)).Msg("Failed to read fan speed")
			continue
		}
		sum += int(speed)
		read++
	}
	if read == 0 {
		return 0
	}
	return sum / read
}
