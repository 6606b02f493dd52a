package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Store errors
	ErrConnection   ErrorCode = "store_connection_failed"
	ErrStatement    ErrorCode = "store_statement_failed"
	ErrClosedHandle ErrorCode = "store_handle_closed"
	ErrSchemaInit   ErrorCode = "store_schema_init_failed"

	// Collection errors
	ErrCollector       ErrorCode = "collector_failed"
	ErrUnknownCategory ErrorCode = "telemetry_unknown_category"

	// Lifecycle errors
	ErrShutdownFailed ErrorCode = "shutdown_failed"
)

var errorMessages = map[ErrorCode]string{
	ErrInternal:        "Internal error occurred",
	ErrInvalidArgument: "Invalid argument provided",
	ErrAlreadyRunning:  "Another instance is already running",
	ErrInvalidConfig:   "Invalid configuration",
	ErrBindFlags:       "Failed to bind flags",
	ErrReadConfig:      "Failed to read configuration",
	ErrInvalidInterval: "Invalid interval value",
	ErrConnection:      "Failed to open store",
	ErrStatement:       "Statement failed",
	ErrClosedHandle:    "Store handle is closed",
	ErrSchemaInit:      "Failed to initialize schema",
	ErrCollector:       "Collector failed",
	ErrUnknownCategory: "Unknown category",
	ErrShutdownFailed:  "Shutdown failed",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
