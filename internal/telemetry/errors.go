package telemetry

import "codeberg.org/mutker/obdmon/internal/errors"

const (
	// Configuration errors
	ErrInvalidDBPath = errors.ErrorCode("telemetry_invalid_db_path")

	// Publish errors
	ErrEncodeSnapshot = errors.ErrorCode("telemetry_encode_snapshot_failed")
	ErrPublishFailed  = errors.ErrorCode("telemetry_publish_failed")

	// Storage errors
	ErrStorageAccess = errors.ErrorCode("telemetry_storage_access_failed")
	ErrStorageInit   = errors.ErrorCode("telemetry_storage_init_failed")
	ErrStorageClose  = errors.ErrorCode("telemetry_storage_close_failed")
)
