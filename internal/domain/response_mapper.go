package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultResponseMapper is the default implementation of ResponseMapper.
type DefaultResponseMapper struct{}

// NewResponseMapper creates a new instance of DefaultResponseMapper.
func NewResponseMapper() ResponseMapper {
	return &DefaultResponseMapper{}
}

// MapPayload renders a Jira response body verbatim, indented by two spaces.
func (m *DefaultResponseMapper) MapPayload(body []byte) (*ToolResponse, error) {
	text, err := PrettyPayload(body)
	if err != nil {
		return nil, err
	}
	return NewTextResponse(text), nil
}

// MapValue marshals value with a two-space indent.
func (m *DefaultResponseMapper) MapValue(value interface{}) (*ToolResponse, error) {
	text, err := PrettyJSON(value)
	if err != nil {
		return nil, err
	}
	return NewTextResponse(text), nil
}

// MapFailure renders a failed call as {"error": payload}, or as the bare
// payload when wrapped is false.
func (m *DefaultResponseMapper) MapFailure(body []byte, wrapped bool) (*ToolResponse, error) {
	if !wrapped {
		return m.MapPayload(body)
	}
	return m.MapValue(struct {
		Error json.RawMessage `json:"error"`
	}{
		Error: PayloadJSON(body),
	})
}

// MapError converts a call-level error to a JSON-RPC error.
func (m *DefaultResponseMapper) MapError(err error) *Error {
	if err == nil {
		return nil
	}

	var unknownTool *UnknownToolError
	var missing *MissingArgumentError
	var invalid *InvalidArgumentError
	var transport *TransportError
	var rpcErr *Error

	switch {
	case errors.As(err, &unknownTool):
		return &Error{
			Code:    MethodNotFound,
			Message: "Tool not found",
			Data:    err.Error(),
		}
	case errors.As(err, &missing):
		return &Error{
			Code:    InvalidParams,
			Message: "Missing required argument",
			Data: map[string]interface{}{
				"tool":    missing.Tool,
				"missing": missing.Fields,
			},
		}
	case errors.As(err, &invalid):
		return &Error{
			Code:    InvalidParams,
			Message: "Invalid arguments",
			Data:    err.Error(),
		}
	case errors.As(err, &transport):
		return &Error{
			Code:    NetworkError,
			Message: "Network error",
			Data:    err.Error(),
		}
	case errors.As(err, &rpcErr):
		return rpcErr
	default:
		return &Error{
			Code:    InternalError,
			Message: "Internal error",
			Data:    err.Error(),
		}
	}
}

// PayloadJSON returns body as a JSON value. An empty body becomes the empty
// string and a body that is not JSON becomes a JSON string.
func PayloadJSON(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage(`""`)
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	return json.RawMessage(quoteString(string(body)))
}

// quoteString encodes s as a JSON string, leaving <, > and & as they are.
func quoteString(s string) []byte {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(s)
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// PrettyPayload indents a Jira response body without reordering its keys.
func PrettyPayload(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, PayloadJSON(body), "", "  "); err != nil {
		return "", fmt.Errorf("failed to indent payload: %w", err)
	}
	return buf.String(), nil
}

// PrettyJSON marshals value with a two-space indent and without HTML escaping.
func PrettyJSON(value interface{}) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return "", fmt.Errorf("failed to marshal value: %w", err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
