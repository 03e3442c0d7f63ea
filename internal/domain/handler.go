package domain

import (
	"context"
)

// ToolHandler processes tool calls for one backend.
type ToolHandler interface {
	// Handle processes an MCP tool call request.
	// Returns the tool response or a call-level error.
	Handle(ctx context.Context, req *ToolRequest) (*ToolResponse, error)

	// ListTools returns the tools served by this handler, in a stable order.
	ListTools() []ToolDefinition

	// ToolName returns the identifier for this handler.
	ToolName() string
}
