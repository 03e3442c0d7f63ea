package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jessevdk/go-flags"

	"jira-mcp-server/internal/application"
	"jira-mcp-server/internal/domain"
)

func noEnv(string) (string, bool) { return "", false }

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-c", "/etc/jira.yaml", "--transport", "http", "--http-host", "0.0.0.0", "--http-port", "9000"})
	if err != nil {
		t.Fatalf("parseOptions() error = %v", err)
	}

	if opts.Config != "/etc/jira.yaml" || opts.Transport != "http" || opts.HTTPHost != "0.0.0.0" || opts.HTTPPort != 9000 {
		t.Errorf("options = %+v", opts)
	}
}

func TestParseOptions_Errors(t *testing.T) {
	_, err := parseOptions([]string{"--transport", "grpc"})
	if err == nil {
		t.Error("parseOptions() accepted an unknown transport")
	}

	_, err = parseOptions([]string{"--help"})
	var flagsErr *flags.Error
	if !errors.As(err, &flagsErr) || flagsErr.Type != flags.ErrHelp {
		t.Errorf("parseOptions(--help) error = %v, want ErrHelp", err)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "transport:\n  type: stdio\n  http:\n    host: 127.0.0.1\n    port: 8080\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := loadConfig(&options{Config: path, Transport: "http", HTTPPort: 9999}, noEnv)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if config.Transport.Type != domain.TransportHTTP || config.Transport.HTTP.Port != 9999 {
		t.Errorf("Transport = %+v", config.Transport)
	}
	if config.Transport.HTTP.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want the file value", config.Transport.HTTP.Host)
	}
}

func TestLoadConfig_Environment(t *testing.T) {
	env := map[string]string{
		domain.EnvJiraURL:      "https://example.atlassian.net",
		domain.EnvJiraAPIMail:  "dev@example.com",
		domain.EnvJiraAPIToken: "token",
	}

	config, err := loadConfig(&options{}, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if config.Jira.BaseURL != "https://example.atlassian.net" || config.Credentials().Email != "dev@example.com" {
		t.Errorf("Jira = %+v", config.Jira)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	_, err := loadConfig(&options{}, func(key string) (string, bool) {
		if key == domain.EnvJiraURL {
			return "not a url", true
		}
		return "", false
	})
	if err == nil || !strings.Contains(err.Error(), "configuration validation failed") {
		t.Errorf("loadConfig() error = %v, want a validation failure", err)
	}
}

func TestNewServer(t *testing.T) {
	logger := application.NewStructuredLoggerWithWriter(io.Discard)

	for _, transport := range []string{domain.TransportStdio, domain.TransportHTTP} {
		config := domain.DefaultConfig()
		config.Transport.Type = transport

		server, err := newServer(config, logger)
		if err != nil {
			t.Errorf("newServer(%s) error = %v", transport, err)
		}
		if server == nil {
			t.Errorf("newServer(%s) = nil", transport)
		}
	}

	config := domain.DefaultConfig()
	config.Transport.Type = "pigeon"
	if _, err := newServer(config, logger); err == nil {
		t.Error("newServer() accepted an unknown transport")
	}
}
