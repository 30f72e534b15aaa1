package alarm

import "codeberg.org/aulin/anesctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("alarm_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("alarm_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed  = errors.ErrorCode("alarm_schema_init_failed")
	ErrTransactionFailed = errors.ErrorCode("alarm_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed

	// Recording Errors
	ErrInvalidEvent   = errors.ErrorCode("alarm_invalid_event")
	ErrRecordFailed   = errors.ErrorCode("alarm_record_failed")
	ErrQueryFailed    = errors.ErrorCode("alarm_query_failed")
	ErrRecorderClosed = errors.ErrorCode("alarm_recorder_closed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
