package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"jira-mcp-server/internal/domain"
)

// Server identity reported by initialize.
const (
	ServerName      = "jira-mcp-server"
	ServerVersion   = "0.1.0"
	ProtocolVersion = "2024-11-05"
)

// Server is the MCP server.
// It reads requests from the transport, serves each one in its own
// goroutine and writes the response back through the transport.
type Server struct {
	transport domain.Transport
	router    *RequestRouter
	mapper    domain.ResponseMapper
	logger    *StructuredLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a new MCP server instance.
func NewServer(transport domain.Transport, router *RequestRouter, logger *StructuredLogger) *Server {
	if logger == nil {
		logger = NewStructuredLogger()
	}
	return &Server{
		transport: transport,
		router:    router,
		mapper:    domain.NewResponseMapper(),
		logger:    logger,
	}
}

// Start starts the transport and begins processing incoming requests.
func (s *Server) Start(ctx context.Context) error {
	if err := s.transport.Start(ctx); err != nil {
		s.logger.LogError("failed to start transport", err, nil)
		return fmt.Errorf("failed to start transport: %w", err)
	}

	processCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.logger.LogInfo("server started", nil)

	s.wg.Add(1)
	go s.processRequests(processCtx)

	return nil
}

// processRequests serves requests until the transport closes its channel
// or ctx is cancelled.
func (s *Server) processRequests(ctx context.Context) {
	defer s.wg.Done()

	// Calls already sent to Jira run to completion even during shutdown
	callCtx := context.WithoutCancel(ctx)
	reqChan := s.transport.Receive()

	for {
		select {
		case <-ctx.Done():
			s.logger.LogInfo("server shutting down", nil)
			return
		case req, ok := <-reqChan:
			if !ok {
				return
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleRequest(callCtx, req)
			}()
		}
	}
}

// handleRequest serves a single JSON-RPC request.
func (s *Server) handleRequest(ctx context.Context, req *domain.Request) {
	if req.IsNotification() {
		s.logger.LogInfo("received notification", map[string]interface{}{
			"method": req.Method,
		})
		return
	}

	s.logger.LogInfo("received request", map[string]interface{}{
		"method":     req.Method,
		"request_id": req.ID,
	})

	start := time.Now()
	result, err := s.dispatch(ctx, req)

	response := &domain.Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Session: req.Session,
	}
	if err != nil {
		s.logger.LogError("request processing failed", err, map[string]interface{}{
			"method":     req.Method,
			"request_id": req.ID,
		})
		response.Error = s.mapper.MapError(err)
	} else {
		response.Result = result
	}

	if err := s.transport.Send(response); err != nil {
		s.logger.LogError("failed to send response", err, map[string]interface{}{
			"request_id": req.ID,
		})
		return
	}

	s.logger.LogInfo("request completed", map[string]interface{}{
		"method":      req.Method,
		"request_id":  req.ID,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// dispatch routes a request by method.
func (s *Server) dispatch(ctx context.Context, req *domain.Request) (interface{}, error) {
	if req.Method == "" {
		return nil, &domain.Error{Code: domain.InvalidRequest, Message: "Invalid Request", Data: "method is required"}
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(), nil
	case "ping":
		return map[string]interface{}{}, nil
	case "tools/list":
		return map[string]interface{}{"tools": s.router.ListAllTools()}, nil
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return nil, &domain.Error{
			Code:    domain.MethodNotFound,
			Message: "Method not found",
			Data:    fmt.Sprintf("unknown method: %s", req.Method),
		}
	}
}

// handleInitialize answers the MCP handshake.
func (s *Server) handleInitialize() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    ServerName,
			"version": ServerVersion,
		},
	}
}

// handleToolsCall executes a tool call through the router.
func (s *Server) handleToolsCall(ctx context.Context, req *domain.Request) (*domain.ToolResponse, error) {
	toolReq, err := parseToolRequest(req.Params)
	if err != nil {
		return nil, &domain.Error{Code: domain.InvalidParams, Message: "Invalid params", Data: err.Error()}
	}

	return s.router.Route(ctx, toolReq)
}

// parseToolRequest parses the params field into a ToolRequest.
func parseToolRequest(params interface{}) (*domain.ToolRequest, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required for tools/call")
	}

	// Round trip through JSON to accept both decoded maps and structs
	jsonData, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	var toolReq domain.ToolRequest
	if err := json.Unmarshal(jsonData, &toolReq); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool request: %w", err)
	}

	if toolReq.Name == "" {
		return nil, fmt.Errorf("tool name is required")
	}

	if toolReq.Arguments == nil {
		toolReq.Arguments = make(map[string]interface{})
	}

	return &toolReq, nil
}

// Close stops reading, waits for in-flight calls and closes the transport.
func (s *Server) Close() error {
	s.logger.LogInfo("closing server", nil)
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return s.transport.Close()
}
