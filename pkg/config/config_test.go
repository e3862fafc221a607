package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerConfigAddr(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{
			name: "default binds all interfaces",
			cfg:  *DefaultServerConfig(),
			want: ":8080",
		},
		{
			name: "explicit host",
			cfg:  ServerConfig{Host: "127.0.0.1", Port: 9090},
			want: "127.0.0.1:9090",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Addr())
		})
	}
}

func TestStats(t *testing.T) {
	cfg := validConfig()
	stats := cfg.Stats()

	assert.Equal(t, 1, stats.ExternalAgents)
	assert.Equal(t, 2, stats.Listings)
	assert.Equal(t, 1, stats.Versions)
	assert.Equal(t, 1, stats.Policies)
}
