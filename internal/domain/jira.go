package domain

// Document is an Atlassian Document Format value, the rich-text structure
// Jira Cloud expects in description fields.
type Document struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Content []Node `json:"content"`
}

// Node is a block or inline node of a Document.
type Node struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Content []Node `json:"content,omitempty"`
}

// NewParagraphDocument wraps text into a document with one paragraph.
func NewParagraphDocument(text string) *Document {
	return &Document{
		Type:    "doc",
		Version: 1,
		Content: []Node{
			{
				Type: "paragraph",
				Content: []Node{
					{Type: "text", Text: text},
				},
			},
		},
	}
}

// ProjectRef is a reference to a project (used in create operations).
type ProjectRef struct {
	Key string `json:"key"`
}

// IssueTypeRef is a reference to an issue type (used in create operations).
type IssueTypeRef struct {
	Name string `json:"name"`
}

// IssueRef references another issue, e.g. the parent epic.
type IssueRef struct {
	Key string `json:"key"`
}

// NamedRef references a priority or a component by name.
type NamedRef struct {
	Name string `json:"name"`
}

// IssueCreate represents the request body for creating a new Jira issue.
type IssueCreate struct {
	Fields IssueCreateFields `json:"fields"`
}

// IssueCreateFields contains the fields sent when creating an issue.
type IssueCreateFields struct {
	Project     ProjectRef   `json:"project"`
	Summary     string       `json:"summary"`
	Description *Document    `json:"description,omitempty"`
	IssueType   IssueTypeRef `json:"issuetype"`
	Parent      *IssueRef    `json:"parent,omitempty"`
}

// IssueUpdate represents the request body for a partial issue update.
type IssueUpdate struct {
	Fields IssueUpdateFields `json:"fields"`
}

// IssueUpdateFields holds only the fields the caller supplied.
// Nil members are left out of the body so Jira keeps their current value.
type IssueUpdateFields struct {
	Summary     *string    `json:"summary,omitempty"`
	Description *Document  `json:"description,omitempty"`
	Priority    *NamedRef  `json:"priority,omitempty"`
	Labels      []string   `json:"labels,omitzero"`
	Components  []NamedRef `json:"components,omitzero"`
	Parent      *IssueRef  `json:"parent,omitempty"`
}

// Assignee is the request body of the assignee endpoint.
type Assignee struct {
	AccountID string `json:"accountId"`
}
