package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"jira-mcp-server/internal/domain"
)

// failureStyle selects how a failed Jira call is rendered.
type failureStyle int

const (
	// wrapFailure renders {"error": payload}; transport faults are call-level errors.
	wrapFailure failureStyle = iota
	// rawFailure renders the bare payload; transport faults are rendered too.
	rawFailure
)

// binding is a catalog entry together with its behaviour.
type binding interface {
	bind(def domain.ToolDefinition) error
	definition() domain.ToolDefinition
	invoke(ctx context.Context, d *Dispatcher, args map[string]interface{}) (*domain.ToolResponse, error)
}

// tool binds a catalog definition to a typed argument struct A.
type tool[A any] struct {
	name string

	// request maps decoded arguments to the single backend call.
	request func(args A) *domain.BackendRequest

	// success renders a successful call; nil renders the payload verbatim.
	success func(m domain.ResponseMapper, res *domain.BackendResult) (*domain.ToolResponse, error)

	failure failureStyle

	// Set by bind.
	def      domain.ToolDefinition
	required []string
	resolved *jsonschema.Resolved
}

func (t *tool[A]) definition() domain.ToolDefinition {
	return t.def
}

func (t *tool[A]) bind(def domain.ToolDefinition) error {
	resolved, err := def.InputSchema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("failed to resolve input schema of %s: %w", def.Name, err)
	}
	t.def = def
	t.required = requiredPaths(def.InputSchema)
	t.resolved = resolved
	return nil
}

func (t *tool[A]) invoke(ctx context.Context, d *Dispatcher, args map[string]interface{}) (*domain.ToolResponse, error) {
	if missing := missingArguments(args, t.required); len(missing) > 0 {
		return nil, &domain.MissingArgumentError{Tool: t.name, Fields: missing}
	}

	normalized := coerceArguments(t.def.InputSchema, args)
	if err := t.resolved.Validate(normalized); err != nil {
		return nil, &domain.InvalidArgumentError{Tool: t.name, Err: err}
	}

	var decoded A
	if err := decodeArguments(normalized, &decoded); err != nil {
		return nil, &domain.InvalidArgumentError{Tool: t.name, Err: err}
	}

	req := t.request(decoded)
	start := time.Now()
	res, err := d.backend.Do(ctx, req)
	if err != nil {
		d.logger.LogError("jira call failed", err, map[string]interface{}{
			"tool":        t.name,
			"method":      req.Method,
			"path":        req.Path,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if t.failure == rawFailure {
			return d.mapper.MapValue(map[string]string{"message": err.Error()})
		}
		return nil, err
	}

	d.logger.LogInfo("jira call completed", map[string]interface{}{
		"tool":        t.name,
		"method":      req.Method,
		"path":        req.Path,
		"status":      res.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if res.Failed() {
		return d.mapper.MapFailure(res.Body, t.failure == wrapFailure)
	}
	if t.success != nil {
		return t.success(d.mapper, res)
	}
	return d.mapper.MapPayload(res.Body)
}

// Dispatcher implements domain.ToolHandler for the Jira tools.
// It holds no mutable state, so one instance serves concurrent calls.
type Dispatcher struct {
	backend domain.Backend
	mapper  domain.ResponseMapper
	logger  *StructuredLogger
	tools   []binding
	byName  map[string]binding
}

// NewDispatcher binds every catalog entry to its Jira mapping.
func NewDispatcher(backend domain.Backend, mapper domain.ResponseMapper, logger *StructuredLogger) (*Dispatcher, error) {
	if mapper == nil {
		mapper = domain.NewResponseMapper()
	}
	if logger == nil {
		logger = NewStructuredLogger()
	}

	d := &Dispatcher{
		backend: backend,
		mapper:  mapper,
		logger:  logger,
		byName:  make(map[string]binding),
	}

	mappings := jiraTools()
	for _, def := range Catalog() {
		b, ok := mappings[def.Name]
		if !ok {
			return nil, fmt.Errorf("no Jira mapping for tool %s", def.Name)
		}
		if err := b.bind(def); err != nil {
			return nil, err
		}
		d.tools = append(d.tools, b)
		d.byName[def.Name] = b
	}

	return d, nil
}

// ToolName returns the identifier for this handler.
func (d *Dispatcher) ToolName() string {
	return "jira"
}

// ListTools returns the catalog in its fixed order.
func (d *Dispatcher) ListTools() []domain.ToolDefinition {
	defs := make([]domain.ToolDefinition, len(d.tools))
	for i, b := range d.tools {
		defs[i] = b.definition()
	}
	return defs
}

// Handle processes an MCP tool call request.
func (d *Dispatcher) Handle(ctx context.Context, req *domain.ToolRequest) (*domain.ToolResponse, error) {
	return d.Invoke(ctx, req.Name, req.Arguments)
}

// Invoke runs one tool. Jira failures come back as a normal response;
// the error return is reserved for unknown tools, bad arguments and, for
// most tools, transport faults.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]interface{}) (*domain.ToolResponse, error) {
	b, ok := d.byName[name]
	if !ok {
		return nil, &domain.UnknownToolError{Name: name}
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	d.logger.LogInfo("executing tool", map[string]interface{}{
		"tool":      name,
		"arguments": sortedKeys(args),
	})

	return b.invoke(ctx, d, args)
}
