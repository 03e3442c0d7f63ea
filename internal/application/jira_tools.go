package application

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"jira-mcp-server/internal/domain"
	"jira-mcp-server/internal/infrastructure"
)

// defaultEditDescription replaces an omitted description on edit_ticket.
const defaultEditDescription = "No description provided"

// assignedPrefix precedes the serialized response of assign_ticket.
const assignedPrefix = "Ticket assigned : "

type searchArgs struct {
	JQL             string `json:"jql"`
	NumberOfResults int    `json:"number_of_results"`
}

type pageArgs struct {
	NumberOfResults int `json:"number_of_results"`
}

type createTicketArgs struct {
	Project     domain.ProjectRef   `json:"project"`
	Summary     string              `json:"summary"`
	Description string              `json:"description"`
	IssueType   domain.IssueTypeRef `json:"issuetype"`
	Parent      string              `json:"parent"`
}

type issueArgs struct {
	IssueIDOrKey string `json:"issueIdOrKey"`
}

type editTicketArgs struct {
	IssueIDOrKey string            `json:"issueIdOrKey"`
	Summary      *string           `json:"summary"`
	Description  nullableString    `json:"description"`
	Priority     *string           `json:"priority"`
	Labels       []string          `json:"labels"`
	Components   []domain.NamedRef `json:"components"`
	Parent       *string           `json:"parent"`
}

type assignTicketArgs struct {
	AccountID    string `json:"accountId"`
	IssueIDOrKey string `json:"issueIdOrKey"`
}

type assignableArgs struct {
	ProjectKey string `json:"project_key"`
}

// nullableString tells an absent value from an explicit null.
type nullableString struct {
	Set   bool
	Null  bool
	Value string
}

func (n *nullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Null = true
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

// jiraTools returns the Jira mapping of every catalog entry.
func jiraTools() map[string]binding {
	return map[string]binding{
		ToolExecuteJQL: &tool[searchArgs]{
			name:    ToolExecuteJQL,
			request: searchRequest,
		},
		ToolTicketNameAndDescription: &tool[searchArgs]{
			name:    ToolTicketNameAndDescription,
			request: searchRequest,
			success: func(m domain.ResponseMapper, res *domain.BackendResult) (*domain.ToolResponse, error) {
				return m.MapValue(issueSummaries(res.Body))
			},
		},
		ToolCreateTicket: &tool[createTicketArgs]{
			name:    ToolCreateTicket,
			request: createTicketRequest,
			failure: rawFailure,
		},
		ToolListProjects: &tool[pageArgs]{
			name: ToolListProjects,
			request: func(args pageArgs) *domain.BackendRequest {
				return pageRequest(infrastructure.ProjectPath, args)
			},
		},
		ToolDeleteTicket: &tool[issueArgs]{
			name: ToolDeleteTicket,
			request: func(args issueArgs) *domain.BackendRequest {
				return &domain.BackendRequest{
					Method: http.MethodDelete,
					Path:   infrastructure.IssueKeyPath(args.IssueIDOrKey),
				}
			},
		},
		ToolEditTicket: &tool[editTicketArgs]{
			name:    ToolEditTicket,
			request: editTicketRequest,
		},
		ToolGetAllStatuses: &tool[pageArgs]{
			name: ToolGetAllStatuses,
			request: func(args pageArgs) *domain.BackendRequest {
				return pageRequest(infrastructure.StatusPath, args)
			},
		},
		ToolAssignTicket: &tool[assignTicketArgs]{
			name: ToolAssignTicket,
			request: func(args assignTicketArgs) *domain.BackendRequest {
				return &domain.BackendRequest{
					Method: http.MethodPut,
					Path:   infrastructure.AssigneePath(args.IssueIDOrKey),
					Body:   &domain.Assignee{AccountID: args.AccountID},
				}
			},
			success: renderAssigned,
		},
		ToolQueryAssignable: &tool[assignableArgs]{
			name: ToolQueryAssignable,
			request: func(args assignableArgs) *domain.BackendRequest {
				return &domain.BackendRequest{
					Method: http.MethodGet,
					Path:   infrastructure.AssignableSearchPath,
					Query:  url.Values{"project": {args.ProjectKey}},
				}
			},
		},
	}
}

func searchRequest(args searchArgs) *domain.BackendRequest {
	return &domain.BackendRequest{
		Method: http.MethodGet,
		Path:   infrastructure.SearchPath,
		Query: url.Values{
			"jql":        {args.JQL},
			"maxResults": {strconv.Itoa(args.NumberOfResults)},
		},
	}
}

func pageRequest(path string, args pageArgs) *domain.BackendRequest {
	return &domain.BackendRequest{
		Method: http.MethodGet,
		Path:   path,
		Query:  url.Values{"maxResults": {strconv.Itoa(args.NumberOfResults)}},
	}
}

// createTicketRequest leaves out an empty description instead of sending
// an empty document.
func createTicketRequest(args createTicketArgs) *domain.BackendRequest {
	fields := domain.IssueCreateFields{
		Project:   args.Project,
		Summary:   args.Summary,
		IssueType: args.IssueType,
	}
	if args.Description != "" {
		fields.Description = domain.NewParagraphDocument(args.Description)
	}
	if args.Parent != "" {
		fields.Parent = &domain.IssueRef{Key: args.Parent}
	}

	return &domain.BackendRequest{
		Method: http.MethodPost,
		Path:   infrastructure.IssuePath,
		Body:   &domain.IssueCreate{Fields: fields},
	}
}

// editTicketRequest sends only the fields the caller supplied, with one
// exception: an absent or empty description is replaced by a placeholder.
// Only an explicit null keeps the description out of the body.
func editTicketRequest(args editTicketArgs) *domain.BackendRequest {
	fields := domain.IssueUpdateFields{
		Summary:    args.Summary,
		Labels:     args.Labels,
		Components: args.Components,
	}

	if !args.Description.Null {
		text := args.Description.Value
		if text == "" {
			text = defaultEditDescription
		}
		fields.Description = domain.NewParagraphDocument(text)
	}
	if args.Priority != nil {
		fields.Priority = &domain.NamedRef{Name: *args.Priority}
	}
	if args.Parent != nil {
		fields.Parent = &domain.IssueRef{Key: *args.Parent}
	}

	return &domain.BackendRequest{
		Method: http.MethodPut,
		Path:   infrastructure.IssueKeyPath(args.IssueIDOrKey),
		Body:   &domain.IssueUpdate{Fields: fields},
	}
}

// issueSummary is the projection returned by get_only_ticket_name_and_description.
type issueSummary struct {
	Key         json.RawMessage `json:"key"`
	Summary     json.RawMessage `json:"summary"`
	Description json.RawMessage `json:"description"`
}

// issueSummaries projects every element of the "issues" array of a search
// payload, keeping the order. Absent members become null.
func issueSummaries(body []byte) []issueSummary {
	summaries := make([]issueSummary, 0)
	gjson.GetBytes(body, "issues").ForEach(func(_, issue gjson.Result) bool {
		summaries = append(summaries, issueSummary{
			Key:         rawOrNull(issue.Get("key")),
			Summary:     rawOrNull(issue.Get("fields.summary")),
			Description: rawOrNull(issue.Get("fields.description")),
		})
		return true
	})
	return summaries
}

func rawOrNull(r gjson.Result) json.RawMessage {
	if !r.Exists() {
		return json.RawMessage("null")
	}
	return json.RawMessage(r.Raw)
}

// responseObject is the whole HTTP response as reported by assign_ticket.
type responseObject struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Data       json.RawMessage   `json:"data"`
}

// renderAssigned reports the full response, not only its payload, after a
// fixed prefix.
func renderAssigned(m domain.ResponseMapper, res *domain.BackendResult) (*domain.ToolResponse, error) {
	headers := make(map[string]string, len(res.Header))
	for name, values := range res.Header {
		headers[strings.ToLower(name)] = strings.Join(values, ", ")
	}

	text, err := domain.PrettyJSON(responseObject{
		Status:     res.StatusCode,
		StatusText: strings.TrimSpace(strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode))),
		Headers:    headers,
		Data:       domain.PayloadJSON(res.Body),
	})
	if err != nil {
		return nil, err
	}
	return domain.NewTextResponse(assignedPrefix + text), nil
}
