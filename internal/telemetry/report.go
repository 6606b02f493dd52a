package telemetry

import "github.com/RPi-WebTools/sysmon-fetcher/internal/errors"

// Report aggregates the results of one collection round
type Report struct {
	Results []Result
}

// Failed returns the results that carry an error
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Rows is the number of rows written in the round
func (r *Report) Rows() int64 {
	var n int64
	for _, res := range r.Results {
		n += res.Rows
	}
	return n
}

// Err joins every failure of the round, nil when all succeeded
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}

	errs := make([]error, len(failed))
	names := make([]string, len(failed))
	for i, res := range failed {
		errs[i] = res.Err
		names[i] = res.Category.String()
		if res.VolumeID != "" {
			names[i] += ":" + res.VolumeID
		}
	}
	return errors.New().Wrap(ErrCollection, errors.Join(errs...)).WithData(names)
}
