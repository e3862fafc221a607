package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora/pkg/models"
)

// validConfig returns a configuration that passes full validation; tests
// mutate one aspect at a time.
func validConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Queue:      DefaultQueueConfig(),
		Proxy:      DefaultProxyConfig(),
		Streams:    DefaultStreamsConfig(),
		Policy:     DefaultPolicyConfig(),
		Versioning: DefaultVersioningConfig(),
		Webhooks:   DefaultWebhooksConfig(),
		Retention:  DefaultRetentionConfig(),
		Tokenizer:  DefaultTokenizerConfig(),
		ExternalAgents: []models.ExternalAgentConfig{
			{ID: "summarizer", BaseURL: "https://agents.example.com/summarizer", Streaming: "sse"},
		},
		Listings: []models.UpsertListingRequest{
			{AgentID: "summarizer", Name: "Summarizer", Kind: "external", Tier: "standard"},
			{AgentID: "echo", Name: "Echo", Kind: "local"},
		},
		Versions: []models.RegisterVersionRequest{
			{ArtifactID: "summarizer", Kind: "agent", Version: "1.4.0", MinCompatibleVersion: "1.0.0"},
		},
		Policies: []models.PolicyRequest{
			{
				Name:   "allow-standard",
				Effect: "allow",
				Actions: models.ActionSet{
					Allowed: []string{"execute"},
				},
			},
		},
	}
}

func TestValidateAll_ValidConfig(t *testing.T) {
	require.NoError(t, NewValidator(validConfig()).ValidateAll())
}

func TestValidateSections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Server.Port = 70000 },
			errMsg: "port",
		},
		{
			name:   "zero workers",
			mutate: func(c *Config) { c.Queue.WorkerCount = 0 },
			errMsg: "worker_count",
		},
		{
			name:   "negative run timeout",
			mutate: func(c *Config) { c.Queue.RunTimeout = -1 },
			errMsg: "run_timeout",
		},
		{
			name:   "rate window unset while rate limit active",
			mutate: func(c *Config) { c.Queue.RateWindow = 0 },
			errMsg: "rate_window",
		},
		{
			name:   "circuit error rate above one",
			mutate: func(c *Config) { c.Proxy.CircuitErrorRate = 1.5 },
			errMsg: "circuit_error_rate",
		},
		{
			name:   "retry multiplier below one",
			mutate: func(c *Config) { c.Proxy.Retry.Multiplier = 0.5 },
			errMsg: "retry.multiplier",
		},
		{
			name:   "zero subscriber buffer",
			mutate: func(c *Config) { c.Streams.SubscriberBuffer = 0 },
			errMsg: "subscriber_buffer",
		},
		{
			name:   "zero webhook workers",
			mutate: func(c *Config) { c.Webhooks.Workers = 0 },
			errMsg: "workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := NewValidator(cfg).ValidateAll()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateExternalAgents(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name: "missing id",
			mutate: func(c *Config) {
				c.ExternalAgents[0].ID = ""
				c.Listings = nil
			},
			errMsg: "id",
		},
		{
			name: "duplicate id",
			mutate: func(c *Config) {
				c.ExternalAgents = append(c.ExternalAgents, c.ExternalAgents[0])
			},
			errMsg: "duplicate agent id",
		},
		{
			name: "missing base url",
			mutate: func(c *Config) {
				c.ExternalAgents[0].BaseURL = ""
			},
			errMsg: "base_url",
		},
		{
			name: "relative base url",
			mutate: func(c *Config) {
				c.ExternalAgents[0].BaseURL = "/not/absolute"
			},
			errMsg: "absolute http(s) URL",
		},
		{
			name: "unsupported scheme",
			mutate: func(c *Config) {
				c.ExternalAgents[0].BaseURL = "ftp://agents.example.com"
			},
			errMsg: "absolute http(s) URL",
		},
		{
			name: "invalid streaming protocol",
			mutate: func(c *Config) {
				c.ExternalAgents[0].Streaming = "carrier-pigeon"
			},
			errMsg: "invalid protocol",
		},
		{
			name: "invalid auth method",
			mutate: func(c *Config) {
				c.ExternalAgents[0].Auth.Method = "oauth3"
			},
			errMsg: "invalid method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := NewValidator(cfg).ValidateAll()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateListings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "missing name",
			mutate: func(c *Config) { c.Listings[0].Name = "" },
			errMsg: "name",
		},
		{
			name:   "invalid kind",
			mutate: func(c *Config) { c.Listings[1].Kind = "hosted" },
			errMsg: "must be local or external",
		},
		{
			name:   "invalid tier",
			mutate: func(c *Config) { c.Listings[0].Tier = "platinum" },
			errMsg: "must be free, standard or premium",
		},
		{
			name: "external listing without a seeded agent",
			mutate: func(c *Config) {
				c.Listings[0].AgentID = "ghost"
			},
			errMsg: "external agent 'ghost' not found",
		},
		{
			name: "duplicate listing",
			mutate: func(c *Config) {
				c.Listings = append(c.Listings, c.Listings[0])
			},
			errMsg: "duplicate listing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := NewValidator(cfg).ValidateAll()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateVersions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "invalid kind",
			mutate: func(c *Config) { c.Versions[0].Kind = "plugin" },
			errMsg: "must be agent or tool",
		},
		{
			name:   "invalid semver",
			mutate: func(c *Config) { c.Versions[0].Version = "not-a-version" },
			errMsg: "invalid semver",
		},
		{
			name:   "invalid min compatible version",
			mutate: func(c *Config) { c.Versions[0].MinCompatibleVersion = "one.two" },
			errMsg: "invalid semver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := NewValidator(cfg).ValidateAll()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidatePolicies(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "missing name",
			mutate: func(c *Config) { c.Policies[0].Name = "" },
			errMsg: "name",
		},
		{
			name:   "invalid effect",
			mutate: func(c *Config) { c.Policies[0].Effect = "maybe" },
			errMsg: "must be allow or deny",
		},
		{
			name:   "no actions",
			mutate: func(c *Config) { c.Policies[0].Actions = models.ActionSet{} },
			errMsg: "at least one allowed or denied action",
		},
		{
			name: "invalid operator",
			mutate: func(c *Config) {
				c.Policies[0].SubjectConditions = []models.Condition{
					{Attribute: "subject.id", Operator: "resembles", Value: "x"},
				}
			},
			errMsg: "invalid operator",
		},
		{
			name: "condition without attribute",
			mutate: func(c *Config) {
				c.Policies[0].ResourceConditions = []models.Condition{
					{Operator: "equals", Value: "x"},
				}
			},
			errMsg: "attribute is required",
		},
		{
			name: "start hour out of range",
			mutate: func(c *Config) {
				h := 24
				c.Policies[0].TimeRestrictions = &models.TimeRestrictions{StartHour: &h}
			},
			errMsg: "start_hour",
		},
		{
			name: "invalid day of week",
			mutate: func(c *Config) {
				c.Policies[0].TimeRestrictions = &models.TimeRestrictions{DaysOfWeek: []int{7}}
			},
			errMsg: "days_of_week",
		},
		{
			name: "bad CIDR",
			mutate: func(c *Config) {
				c.Policies[0].IPRestrictions = &models.IPRestrictions{Allowed: []string{"10.0.0.0/99"}}
			},
			errMsg: "invalid CIDR",
		},
		{
			name: "bare address is accepted",
			mutate: func(c *Config) {
				c.Policies[0].IPRestrictions = &models.IPRestrictions{Blocked: []string{"203.0.113.9"}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := NewValidator(cfg).ValidateAll()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
