package config

import (
	"fmt"

	"github.com/openagora/agora/pkg/models"
)

// Config is the umbrella configuration object that encapsulates all section
// configs and startup seeds. This is the primary object returned by
// Initialize() and used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// HTTP server configuration
	Server *ServerConfig

	// Queue and worker pool configuration
	Queue *QueueConfig

	// External agent proxy configuration
	Proxy *ProxyConfig

	// Stream hub and connection keepalive configuration
	Streams *StreamsConfig

	// Policy engine configuration
	Policy *PolicyConfig

	// Artifact lifecycle registry configuration
	Versioning *VersioningConfig

	// Webhook delivery configuration
	Webhooks *WebhooksConfig

	// Data retention configuration
	Retention *RetentionConfig

	// PII tokenizer configuration
	Tokenizer *TokenizerConfig

	// Startup seeds, applied idempotently on boot.
	ExternalAgents []models.ExternalAgentConfig
	Listings       []models.UpsertListingRequest
	Versions       []models.RegisterVersionRequest
	Policies       []models.PolicyRequest
}

// ServerConfig holds HTTP listener settings. An empty AdminToken disables
// the admin API surface entirely.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	AdminToken string `yaml:"admin_token"`
}

// Addr returns the listen address in host:port form.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultServerConfig returns the built-in server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port: 8080,
	}
}

// Initialize is defined in loader.go

// Stats contains statistics about loaded configuration
type Stats struct {
	ExternalAgents int
	Listings       int
	Versions       int
	Policies       int
}

// Stats returns configuration statistics for logging/monitoring
func (c *Config) Stats() Stats {
	return Stats{
		ExternalAgents: len(c.ExternalAgents),
		Listings:       len(c.Listings),
		Versions:       len(c.Versions),
		Policies:       len(c.Policies),
	}
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}
