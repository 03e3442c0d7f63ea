package domain

import (
	"context"
	"net/http"
	"net/url"
)

// Backend executes a single call against the Jira REST API.
// A non-2xx answer is a BackendResult, not an error; the error return is
// reserved for transport faults.
type Backend interface {
	Do(ctx context.Context, req *BackendRequest) (*BackendResult, error)
}

// BackendRequest describes one outbound Jira call.
// Path is relative to the versioned REST namespace, e.g. "/search".
type BackendRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{} // JSON-encoded when non-nil
}

// BackendResult is the raw answer of a Jira call.
type BackendResult struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Failed reports whether Jira answered with a non-success status.
func (r *BackendResult) Failed() bool {
	return r.StatusCode < 200 || r.StatusCode > 299
}
