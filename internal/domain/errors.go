package domain

import (
	"fmt"
	"strings"
)

// UnknownToolError is returned when a tool name is not in the catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// MissingArgumentError lists the required arguments absent from a call.
// Nested arguments use dotted paths, e.g. "project.key".
type MissingArgumentError struct {
	Tool   string
	Fields []string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing required argument(s) for %s: %s", e.Tool, strings.Join(e.Fields, ", "))
}

// InvalidArgumentError reports arguments that are present but malformed.
type InvalidArgumentError struct {
	Tool string
	Err  error
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *InvalidArgumentError) Unwrap() error {
	return e.Err
}

// TransportError is returned when Jira could not be reached or its response
// could not be read. It never carries a Jira status code.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
