package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldRunID is the bulk upload run ID
	FieldRunID = "run_id"

	// FieldSessionID is the chat session ID
	FieldSessionID = "session_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldJobIndex is the position of an upload job in its queue
	FieldJobIndex = "job_index"

	// FieldCollection is the document collection being read or written
	FieldCollection = "collection"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
