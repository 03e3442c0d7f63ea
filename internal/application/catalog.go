package application

import (
	"encoding/json"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"

	"jira-mcp-server/internal/domain"
)

// Tool names, in catalog order.
const (
	ToolExecuteJQL               = "execute_jql"
	ToolTicketNameAndDescription = "get_only_ticket_name_and_description"
	ToolCreateTicket             = "create_ticket"
	ToolListProjects             = "list_projects"
	ToolDeleteTicket             = "delete_ticket"
	ToolEditTicket               = "edit_ticket"
	ToolGetAllStatuses           = "get_all_statuses"
	ToolAssignTicket             = "assign_ticket"
	ToolQueryAssignable          = "query_assignable"
)

// Catalog returns the definition of every Jira tool in a fixed order.
// Each call builds fresh values, so callers may not alter one another's copy.
func Catalog() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        ToolExecuteJQL,
			Description: "Execute a JQL query on Jira on the api /rest/api/3/search",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"jql":               stringProperty("JQL query string"),
				"number_of_results": resultCountProperty(1),
			}, "jql"),
		},
		{
			// Smaller answers than execute_jql so more tickets fit in the caller's context
			Name:        ToolTicketNameAndDescription,
			Description: "Get the name and description of the requested tickets on the api /rest/api/3/search",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"jql":               stringProperty("JQL query string"),
				"number_of_results": resultCountProperty(1),
			}, "jql"),
		},
		{
			Name:        ToolCreateTicket,
			Description: "Create a ticket on Jira on the api /rest/api/3/issue",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"project": objectSchema(map[string]*jsonschema.Schema{
					"key": stringProperty("The project key"),
				}, "key"),
				"summary":     stringProperty("The summary of the ticket"),
				"description": stringProperty("The description of the ticket"),
				"issuetype": objectSchema(map[string]*jsonschema.Schema{
					"name": stringProperty("The name of the issue type"),
				}, "name"),
				"parent": stringProperty("The key of the parent epic"),
			}, "project", "summary", "description", "issuetype"),
		},
		{
			Name:        ToolListProjects,
			Description: "List all the projects on Jira on the api /rest/api/3/project",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"number_of_results": resultCountProperty(1),
			}),
		},
		{
			Name:        ToolDeleteTicket,
			Description: "Delete a ticket on Jira on the api /rest/api/3/issue/{issueIdOrKey}",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"issueIdOrKey": stringProperty("The issue id or key"),
			}, "issueIdOrKey"),
		},
		{
			Name:        ToolEditTicket,
			Description: "Edit a ticket on Jira on the api /rest/api/3/issue/{issueIdOrKey}",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"issueIdOrKey": stringProperty("The issue id or key"),
				"summary":      stringProperty("The summary of the ticket"),
				"description": {
					Types:       []string{"string", "null"},
					Description: "The description of the ticket. Defaults to a placeholder text; null leaves it unchanged",
				},
				"priority": stringProperty("The name of the priority"),
				"labels": {
					Type:        "array",
					Description: "The labels of the ticket",
					Items:       &jsonschema.Schema{Type: "string"},
				},
				"components": {
					Type:        "array",
					Description: "The components of the ticket",
					Items: objectSchema(map[string]*jsonschema.Schema{
						"name": stringProperty("The name of the component"),
					}, "name"),
				},
				"parent": stringProperty("The key of the parent epic"),
			}, "issueIdOrKey"),
		},
		{
			Name:        ToolGetAllStatuses,
			Description: "Get all the status on Jira on the api /rest/api/3/status",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"number_of_results": resultCountProperty(50),
			}),
		},
		{
			Name:        ToolAssignTicket,
			Description: "Assign a ticket on Jira on the api /rest/api/3/issue/{issueIdOrKey}/assignee",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"accountId":    stringProperty("The account id of the assignee"),
				"issueIdOrKey": stringProperty("The issue id or key"),
			}, "accountId", "issueIdOrKey"),
		},
		{
			Name:        ToolQueryAssignable,
			Description: "Find the users assignable to issues of a project on the api /rest/api/3/user/assignable/search",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"project_key": stringProperty("The project key"),
			}, "project_key"),
		},
	}
}

func objectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func stringProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: description,
	}
}

func resultCountProperty(defaultValue int) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "integer",
		Description: "Number of results to return",
		Default:     json.RawMessage(strconv.Itoa(defaultValue)),
	}
}
