package domain

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Transport types understood by the server.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Environment variables that override the Jira section of the configuration.
const (
	EnvJiraURL      = "JIRA_URL"
	EnvJiraAPIMail  = "JIRA_API_MAIL"
	EnvJiraAPIToken = "JIRA_API_KEY"
)

// Config represents the server configuration.
// It is built once at startup and never mutated afterwards.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Jira      JiraConfig      `yaml:"jira"`
}

// TransportConfig defines transport settings.
type TransportConfig struct {
	Type string     `yaml:"type"` // "stdio" or "http"
	HTTP HTTPConfig `yaml:"http,omitempty"`
}

// HTTPConfig defines HTTP transport settings.
// Only used when transport type is "http".
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// JiraConfig holds the Jira Cloud site and the account used to call it.
// Credentials are not validated at startup: a missing email or token
// surfaces as an authentication failure on the first tool call.
type JiraConfig struct {
	BaseURL  string `yaml:"base_url"`
	Email    string `yaml:"email"`
	APIToken string `yaml:"api_token"`
}

// LookupFunc resolves an environment variable, see os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Type: TransportStdio,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 8080,
			},
		},
	}
}

// LoadConfig builds the configuration from an optional YAML file and the
// environment. An empty path skips the file. Values found through lookup
// take precedence over the file.
func LoadConfig(path string, lookup LookupFunc) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("invalid YAML syntax in configuration file: %w", err)
		}
	}

	if lookup != nil {
		config.ApplyEnv(lookup)
	}

	return config, nil
}

// ApplyEnv overrides the Jira settings with the values present in the environment.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if v, ok := lookup(EnvJiraURL); ok {
		c.Jira.BaseURL = v
	}
	if v, ok := lookup(EnvJiraAPIMail); ok {
		c.Jira.Email = v
	}
	if v, ok := lookup(EnvJiraAPIToken); ok {
		c.Jira.APIToken = v
	}
}

// Credentials returns the account credentials for the Jira backend.
func (c *Config) Credentials() Credentials {
	return Credentials{
		Email:    c.Jira.Email,
		APIToken: c.Jira.APIToken,
	}
}

// Validate checks the configuration for correctness.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errors []string

	if err := c.validateTransport(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.Jira.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// validateTransport validates the transport configuration.
func (c *Config) validateTransport() error {
	var errors []string

	if c.Transport.Type == "" {
		errors = append(errors, "transport type is required")
	} else if c.Transport.Type != TransportStdio && c.Transport.Type != TransportHTTP {
		errors = append(errors, fmt.Sprintf("invalid transport type '%s': must be 'stdio' or 'http'", c.Transport.Type))
	}

	if c.Transport.Type == TransportHTTP {
		if c.Transport.HTTP.Host == "" {
			errors = append(errors, "HTTP host is required when transport type is 'http'")
		}
		if c.Transport.HTTP.Port <= 0 || c.Transport.HTTP.Port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid HTTP port %d: must be between 1 and 65535", c.Transport.HTTP.Port))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate rejects a malformed base URL. An empty one is accepted.
func (jc *JiraConfig) Validate() error {
	if jc.BaseURL == "" {
		return nil
	}

	parsedURL, err := url.Parse(jc.BaseURL)
	if err != nil {
		return fmt.Errorf("Jira base_url is invalid: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("Jira base_url must use http or https scheme")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("Jira base_url must include a host")
	}

	return nil
}
