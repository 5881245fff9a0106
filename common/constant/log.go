package constant

const (
	LogFieldErr      = "error"
	LogFieldPayload  = "payload"
	LogFieldResponse = "response"
	LogFieldTraceId  = "trace_id"
	LogFieldSession  = "session_id"
)
