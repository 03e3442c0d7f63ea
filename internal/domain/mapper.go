package domain

// ResponseMapper converts Jira answers to MCP tool responses and call-level
// errors to JSON-RPC errors.
type ResponseMapper interface {
	// MapPayload renders a Jira response body as pretty-printed JSON.
	MapPayload(body []byte) (*ToolResponse, error)

	// MapValue renders an arbitrary value as pretty-printed JSON.
	MapValue(value interface{}) (*ToolResponse, error)

	// MapFailure renders the body of a failed Jira call. When wrapped is
	// true the payload is nested under an "error" key.
	MapFailure(body []byte, wrapped bool) (*ToolResponse, error)

	// MapError converts a call-level error to a JSON-RPC error.
	MapError(err error) *Error
}
