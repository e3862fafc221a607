package config

// TokenizerConfig controls PII tokenization at the external dispatch
// boundary.
type TokenizerConfig struct {
	// Enabled turns tokenization of outbound payloads on.
	Enabled bool `yaml:"enabled"`

	// FailOpen controls behavior when tokenization itself fails: true
	// sends the payload untokenized, false fails the run.
	FailOpen bool `yaml:"fail_open"`
}

// DefaultTokenizerConfig returns the built-in tokenizer defaults.
func DefaultTokenizerConfig() *TokenizerConfig {
	return &TokenizerConfig{
		Enabled:  true,
		FailOpen: false,
	}
}
