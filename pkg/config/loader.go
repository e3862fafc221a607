package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/openagora/agora/pkg/models"
)

// AgoraYAMLConfig represents the complete agora.yaml file structure
type AgoraYAMLConfig struct {
	Server     *ServerConfig        `yaml:"server"`
	Queue      *QueueConfig         `yaml:"queue"`
	Proxy      *ProxyConfig         `yaml:"proxy"`
	Streams    *StreamsConfig       `yaml:"streams"`
	Policy     *PolicyConfig        `yaml:"policy"`
	Versioning *VersioningConfig    `yaml:"versioning"`
	Webhooks   *WebhooksConfig      `yaml:"webhooks"`
	Retention  *RetentionConfig     `yaml:"retention"`
	Tokenizer  *TokenizerYAMLConfig `yaml:"tokenizer"`

	ExternalAgents []models.ExternalAgentConfig    `yaml:"external_agents"`
	Listings       []models.UpsertListingRequest   `yaml:"listings"`
	Versions       []models.RegisterVersionRequest `yaml:"versions"`
	Policies       []models.PolicyRequest          `yaml:"policies"`
}

// TokenizerYAMLConfig holds tokenizer settings from YAML. Pointers
// distinguish "unset" from an explicit false.
type TokenizerYAMLConfig struct {
	Enabled  *bool `yaml:"enabled,omitempty"`
	FailOpen *bool `yaml:"fail_open,omitempty"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load agora.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge user values over built-in defaults
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	// 1. Load configuration file
	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Validate all configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"external_agents", stats.ExternalAgents,
		"listings", stats.Listings,
		"versions", stats.Versions,
		"policies", stats.Policies)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{
		configDir: configDir,
	}

	raw, err := loader.loadAgoraYAML()
	if err != nil {
		return nil, NewLoadError("agora.yaml", err)
	}

	// Resolve each section: start with built-in defaults, then merge the
	// user config on top so unset fields keep their defaults.
	serverCfg, err := resolveServerConfig(raw.Server)
	if err != nil {
		return nil, err
	}
	queueCfg, err := resolveQueueConfig(raw.Queue)
	if err != nil {
		return nil, err
	}
	proxyCfg, err := resolveProxyConfig(raw.Proxy)
	if err != nil {
		return nil, err
	}
	streamsCfg, err := resolveStreamsConfig(raw.Streams)
	if err != nil {
		return nil, err
	}
	policyCfg, err := resolvePolicyConfig(raw.Policy)
	if err != nil {
		return nil, err
	}
	versioningCfg, err := resolveVersioningConfig(raw.Versioning)
	if err != nil {
		return nil, err
	}
	webhooksCfg, err := resolveWebhooksConfig(raw.Webhooks)
	if err != nil {
		return nil, err
	}
	retentionCfg, err := resolveRetentionConfig(raw.Retention)
	if err != nil {
		return nil, err
	}
	tokenizerCfg := resolveTokenizerConfig(raw.Tokenizer)

	return &Config{
		configDir:      configDir,
		Server:         serverCfg,
		Queue:          queueCfg,
		Proxy:          proxyCfg,
		Streams:        streamsCfg,
		Policy:         policyCfg,
		Versioning:     versioningCfg,
		Webhooks:       webhooksCfg,
		Retention:      retentionCfg,
		Tokenizer:      tokenizerCfg,
		ExternalAgents: raw.ExternalAgents,
		Listings:       raw.Listings,
		Versions:       raw.Versions,
		Policies:       raw.Policies,
	}, nil
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using {{.VAR}} template syntax
	// Note: ExpandEnv passes through original data on parse/execution errors,
	// allowing YAML parser to handle the content (or fail with clearer error message)
	data = ExpandEnv(data)

	// Parse YAML
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadAgoraYAML() (*AgoraYAMLConfig, error) {
	var config AgoraYAMLConfig

	if err := l.loadYAML("agora.yaml", &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// resolveServerConfig merges user server settings over the built-in defaults.
func resolveServerConfig(user *ServerConfig) (*ServerConfig, error) {
	cfg := DefaultServerConfig()
	if user != nil {
		if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge server config: %w", err)
		}
	}
	return cfg, nil
}

func resolveQueueConfig(user *QueueConfig) (*QueueConfig, error) {
	cfg := DefaultQueueConfig()
	if user != nil {
		if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}
	return cfg, nil
}

func resolveProxyConfig(user *ProxyConfig) (*ProxyConfig, error) {
	cfg := DefaultProxyConfig()
	if user != nil {
		if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge proxy config: %w", err)
		}
	}
	return cfg, nil
}

func resolveStreamsConfig(user *StreamsConfig) (*StreamsConfig, error) {
	cfg := DefaultStreamsConfig()
	if user != nil {
		if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge streams config: %w", err)
		}
	}
	return cfg, nil
}

func resolvePolicyConfig(user *PolicyConfig) (*PolicyConfig, error) {
	cfg := DefaultPolicyConfig()
	if user != nil {
		if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge policy config: %w", err)
		}
	}
	return cfg, nil
}

func resolveVersioningConfig(user *VersioningConfig) (*VersioningConfig, error) {
	cfg := DefaultVersioningConfig()
	if user != nil {
		if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge versioning config: %w", err)
		}
	}
	return cfg, nil
}

func resolveWebhooksConfig(user *WebhooksConfig) (*WebhooksConfig, error) {
	cfg := DefaultWebhooksConfig()
	if user != nil {
		if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge webhooks config: %w", err)
		}
	}
	return cfg, nil
}

func resolveRetentionConfig(user *RetentionConfig) (*RetentionConfig, error) {
	cfg := DefaultRetentionConfig()
	if user != nil {
		if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}
	return cfg, nil
}

// resolveTokenizerConfig applies explicit user booleans over the defaults.
// Pointer fields are used because a zero-value merge cannot express an
// explicit "enabled: false".
func resolveTokenizerConfig(user *TokenizerYAMLConfig) *TokenizerConfig {
	cfg := DefaultTokenizerConfig()
	if user == nil {
		return cfg
	}
	if user.Enabled != nil {
		cfg.Enabled = *user.Enabled
	}
	if user.FailOpen != nil {
		cfg.FailOpen = *user.FailOpen
	}
	return cfg
}
