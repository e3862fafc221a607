// Package tokenizer detects PII substrings and replaces them with opaque,
// reversible tokens. Outbound payloads are tokenized before they leave the
// process; results are detokenized before they are stored or returned.
package tokenizer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Service detects and replaces PII using the fixed pattern battery.
// Created once at application startup (singleton). Thread-safe and stateless
// aside from compiled patterns and the token counter.
type Service struct {
	patterns []*CompiledPattern
	session  string
	counter  atomic.Int64
}

// Result reports one tokenize pass.
type Result struct {
	Tokenized     string
	TokenMap      map[string]string
	DetectedTypes []string
	TokenCount    int
}

// NewService creates a tokenizer with compiled patterns and a fresh random
// session prefix, so tokens from different processes never collide.
func NewService() *Service {
	s := &Service{
		patterns: compileBuiltinPatterns(),
		session:  strings.ReplaceAll(uuid.New().String(), "-", "")[:6],
	}

	slog.Info("Tokenizer service initialized",
		"patterns", len(s.patterns),
		"session", s.session)

	return s
}

// Tokenize replaces every PII match in data with an opaque token and returns
// the rewritten text together with the token map needed to reverse it.
// Non-string data is stringified as JSON first.
func (s *Service) Tokenize(data interface{}) (*Result, error) {
	text, err := stringify(data)
	if err != nil {
		return nil, fmt.Errorf("failed to stringify data for tokenization: %w", err)
	}

	result := &Result{
		Tokenized: text,
		TokenMap:  make(map[string]string),
	}

	for _, p := range s.patterns {
		found := false
		result.Tokenized = p.Regex.ReplaceAllStringFunc(result.Tokenized, func(match string) string {
			found = true
			token := s.mint(p.Name)
			result.TokenMap[token] = match
			return token
		})
		if found {
			result.DetectedTypes = append(result.DetectedTypes, p.Name)
		}
	}

	result.TokenCount = len(result.TokenMap)
	return result, nil
}

// Detokenize restores the original substrings for every token present in
// text. Tokens absent from the map are left in place.
func (s *Service) Detokenize(text string, tokenMap map[string]string) string {
	for token, original := range tokenMap {
		text = strings.ReplaceAll(text, token, original)
	}
	return text
}

// ContainsPII reports whether data matches any detection pattern without
// mutating anything. Used for logging gates and policy attributes.
func (s *Service) ContainsPII(data interface{}) bool {
	text, err := stringify(data)
	if err != nil {
		return false
	}
	for _, p := range s.patterns {
		if p.Regex.MatchString(text) {
			return true
		}
	}
	return false
}

// mint produces a fresh opaque token for one detected substring.
func (s *Service) mint(category string) string {
	return fmt.Sprintf("__%s_%s%d__", strings.ToUpper(category), s.session, s.counter.Add(1))
}

func stringify(data interface{}) (string, error) {
	if s, ok := data.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
