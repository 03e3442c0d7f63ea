package domain

import (
	"encoding/base64"
	"net/http"
)

// Credentials identifies the Jira Cloud account used for every backend call.
type Credentials struct {
	Email    string
	APIToken string
}

// Headers returns the header set attached to every backend request:
// Basic authentication over email:apiToken and a JSON content type.
func (c Credentials) Headers() http.Header {
	token := base64.StdEncoding.EncodeToString([]byte(c.Email + ":" + c.APIToken))

	headers := make(http.Header, 2)
	headers.Set("Authorization", "Basic "+token)
	headers.Set("Content-Type", "application/json")
	return headers
}

// NewAuthenticatedClient returns an HTTP client that adds the credential
// headers to every request. The client keeps the default timeout behaviour
// of net/http.
func NewAuthenticatedClient(creds Credentials) *http.Client {
	return NewAuthenticatedClientWithTransport(creds, http.DefaultTransport)
}

// NewAuthenticatedClientWithTransport is NewAuthenticatedClient over a custom base transport.
func NewAuthenticatedClientWithTransport(creds Credentials, base http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: &authenticatedTransport{
			base:    base,
			headers: creds.Headers(),
		},
	}
}

// authenticatedTransport is an http.RoundTripper that adds authentication headers.
// The header set is computed once and shared read-only between requests.
type authenticatedTransport struct {
	base    http.RoundTripper
	headers http.Header
}

// RoundTrip implements http.RoundTripper by adding authentication headers to requests.
func (t *authenticatedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	clonedReq := req.Clone(req.Context())

	for name, values := range t.headers {
		clonedReq.Header[name] = append([]string(nil), values...)
	}

	return t.base.RoundTrip(clonedReq)
}
