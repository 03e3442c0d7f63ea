package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"jira-mcp-server/internal/application"
	"jira-mcp-server/internal/domain"
	"jira-mcp-server/internal/infrastructure"
)

// options are the command-line flags. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type options struct {
	Config    string `short:"c" long:"config" env:"JIRA_MCP_CONFIG" description:"Path to an optional YAML configuration file"`
	Transport string `short:"t" long:"transport" env:"JIRA_MCP_TRANSPORT" choice:"stdio" choice:"http" description:"Transport type"`
	HTTPHost  string `long:"http-host" env:"JIRA_MCP_HTTP_HOST" description:"Host of the HTTP transport"`
	HTTPPort  int    `long:"http-port" env:"JIRA_MCP_HTTP_PORT" description:"Port of the HTTP transport"`
}

// parseOptions parses args, without the program name.
func parseOptions(args []string) (*options, error) {
	opts := &options{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// apply overrides the transport settings that were given on the command line.
func (o *options) apply(config *domain.Config) {
	if o.Transport != "" {
		config.Transport.Type = o.Transport
	}
	if o.HTTPHost != "" {
		config.Transport.HTTP.Host = o.HTTPHost
	}
	if o.HTTPPort != 0 {
		config.Transport.HTTP.Port = o.HTTPPort
	}
}

// loadConfig assembles the configuration from file, environment and flags.
func loadConfig(opts *options, lookup domain.LookupFunc) (*domain.Config, error) {
	config, err := domain.LoadConfig(opts.Config, lookup)
	if err != nil {
		return nil, err
	}

	opts.apply(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// newServer wires the Jira client, the dispatcher and the transport.
func newServer(config *domain.Config, logger *application.StructuredLogger) (*application.Server, error) {
	httpClient := domain.NewAuthenticatedClient(config.Credentials())
	jiraClient := infrastructure.NewJiraClient(config.Jira.BaseURL, httpClient)

	dispatcher, err := application.NewDispatcher(jiraClient, domain.NewResponseMapper(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build dispatcher: %w", err)
	}

	router, err := application.NewRequestRouter(dispatcher)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	var transport domain.Transport
	switch config.Transport.Type {
	case domain.TransportStdio:
		transport = domain.NewStdioTransport()
	case domain.TransportHTTP:
		transport = domain.NewHTTPTransport(config.Transport.HTTP.Host, config.Transport.HTTP.Port)
	default:
		return nil, fmt.Errorf("invalid transport type: %s", config.Transport.Type)
	}

	return application.NewServer(transport, router, logger), nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(0)
		}
		log.Fatalf("Invalid arguments: %v", err)
	}

	config, err := loadConfig(opts, os.LookupEnv)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := application.NewStructuredLogger()
	if config.Jira.BaseURL == "" {
		logger.LogInfo("no Jira base URL configured, tool calls will fail", map[string]interface{}{
			"env": domain.EnvJiraURL,
		})
	}

	server, err := newServer(config, logger)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}

	logger.LogInfo("MCP server started", map[string]interface{}{
		"transport": config.Transport.Type,
		"jira_url":  config.Jira.BaseURL,
	})

	<-ctx.Done()
	logger.LogInfo("initiating graceful shutdown", nil)

	if err := server.Close(); err != nil {
		logger.LogError("error during server shutdown", err, nil)
		os.Exit(1)
	}

	logger.LogInfo("server shutdown complete", nil)
}
