// Package models contains wire types and constants for the agent backend API.
package models

// Endpoint paths, relative to the configured base URL
const (
	PathQuery       = "/query"
	PathQueryStream = "/query/stream"
	PathExecute     = "/execute"
	PathIngest      = "/ingest"
	PathDocuments   = "/documents"
)

// Stream framing constants. Each event is one line of the form
// "data: <json>"; the stream is closed by the literal "data: [DONE]".
const (
	StreamDataPrefix = "data: "
	StreamDoneMarker = "[DONE]"
)

// Event type discriminators carried in the "type" field of stream frames
const (
	EventTypeToken    = "token"
	EventTypeCode     = "code"
	EventTypeComplete = "complete"
	EventTypeError    = "error"
)

// QueryRequest is the body for POST /query and POST /query/stream
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryResponse is the full answer for a query: an explanation, the code
// the agent generated for it (may be empty), and the output of running
// that code when the backend auto-executed it.
type QueryResponse struct {
	Explanation     string `json:"explanation"`
	GeneratedCode   string `json:"generated_code"`
	ExecutionResult string `json:"execution_result,omitempty"`
}

// ExecuteRequest is the body for POST /execute
type ExecuteRequest struct {
	Code string `json:"code"`
}

// ExecuteResponse carries the sandbox output for an execute call
type ExecuteResponse struct {
	Output string `json:"output"`
}

// IngestResponse is the confirmation returned by POST /ingest and
// DELETE /documents
type IngestResponse struct {
	Message string `json:"message"`
}

// DefaultHeaders returns the headers sent with JSON requests
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
}

// StreamHeaders returns the headers sent with streaming requests
func StreamHeaders() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Accept":        "text/event-stream",
		"Cache-Control": "no-cache",
	}
}
