package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"jira-mcp-server/internal/domain"
)

// APIPrefix is the versioned REST namespace of Jira Cloud.
const APIPrefix = "/rest/api/3"

// Paths of the Jira REST resources used by the tools, relative to APIPrefix.
const (
	SearchPath           = "/search"
	IssuePath            = "/issue"
	ProjectPath          = "/project"
	StatusPath           = "/status"
	AssignableSearchPath = "/user/assignable/search"
)

// IssueKeyPath returns the path of a single issue.
func IssueKeyPath(issueIDOrKey string) string {
	return IssuePath + "/" + url.PathEscape(issueIDOrKey)
}

// AssigneePath returns the path of the assignee of an issue.
func AssigneePath(issueIDOrKey string) string {
	return IssueKeyPath(issueIDOrKey) + "/assignee"
}

// JiraClient handles Jira Cloud REST API interactions.
// It implements domain.Backend: every tool call funnels through Do.
type JiraClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewJiraClient creates a new Jira API client.
// The baseURL should be the root URL of the Jira site (e.g., "https://example.atlassian.net").
// The httpClient should be an authenticated client from domain.NewAuthenticatedClient.
func NewJiraClient(baseURL string, httpClient *http.Client) *JiraClient {
	return &JiraClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the configured base URL for the Jira instance.
func (c *JiraClient) BaseURL() string {
	return c.baseURL
}

// Do issues exactly one HTTP request. Any status code is returned as a
// result; only failures to build, send or read the request are errors,
// and those are always *domain.TransportError.
func (c *JiraClient) Do(ctx context.Context, req *domain.BackendRequest) (*domain.BackendResult, error) {
	endpoint := c.baseURL + APIPrefix + req.Path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	fault := func(err error) error {
		return &domain.TransportError{Method: req.Method, URL: endpoint, Err: err}
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fault(fmt.Errorf("failed to marshal body: %w", err))
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, fault(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fault(fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault(fmt.Errorf("failed to read response: %w", err))
	}

	return &domain.BackendResult{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
