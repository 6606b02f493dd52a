package telemetry

import "github.com/RPi-WebTools/sysmon-fetcher/internal/errors"

const (
	ErrUnknownCategory = errors.ErrUnknownCategory

	// Collection Errors
	ErrCollection = errors.ErrorCode("telemetry_collection_failed")
	ErrCollector  = errors.ErrCollector

	// Storage Errors
	ErrStorageInit  = errors.ErrorCode("telemetry_storage_init_failed")
	ErrStorageClose = errors.ErrorCode("telemetry_storage_close_failed")
)
