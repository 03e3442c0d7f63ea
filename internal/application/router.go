package application

import (
	"context"
	"fmt"

	"jira-mcp-server/internal/domain"
)

// RequestRouter dispatches MCP tool requests to the handler that declared the tool.
type RequestRouter struct {
	handlers map[string]domain.ToolHandler
	tools    map[string]domain.ToolHandler
	order    []domain.ToolHandler
}

// NewRequestRouter registers every tool of every handler. A tool name
// declared twice is an error.
func NewRequestRouter(handlers ...domain.ToolHandler) (*RequestRouter, error) {
	router := &RequestRouter{
		handlers: make(map[string]domain.ToolHandler),
		tools:    make(map[string]domain.ToolHandler),
	}

	for _, handler := range handlers {
		router.handlers[handler.ToolName()] = handler
		router.order = append(router.order, handler)

		for _, def := range handler.ListTools() {
			if owner, exists := router.tools[def.Name]; exists {
				return nil, fmt.Errorf("tool %s is declared by both %s and %s", def.Name, owner.ToolName(), handler.ToolName())
			}
			router.tools[def.Name] = handler
		}
	}

	return router, nil
}

// Route dispatches a tool request to the handler owning the tool.
func (r *RequestRouter) Route(ctx context.Context, req *domain.ToolRequest) (*domain.ToolResponse, error) {
	handler, exists := r.tools[req.Name]
	if !exists {
		return nil, &domain.UnknownToolError{Name: req.Name}
	}

	return handler.Handle(ctx, req)
}

// ListAllTools aggregates tool definitions in registration order.
// This is used for MCP tool discovery (tools/list method).
func (r *RequestRouter) ListAllTools() []domain.ToolDefinition {
	var allTools []domain.ToolDefinition
	for _, handler := range r.order {
		allTools = append(allTools, handler.ListTools()...)
	}
	return allTools
}

// GetHandler returns the handler registered under a name.
// This is useful for testing and debugging.
func (r *RequestRouter) GetHandler(handlerName string) (domain.ToolHandler, bool) {
	handler, exists := r.handlers[handlerName]
	return handler, exists
}
