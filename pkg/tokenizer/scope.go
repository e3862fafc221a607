package tokenizer

import "sync"

// Scope accumulates token maps across multiple tokenize calls for one run.
// The orchestrator creates one per run, tokenizes outbound payloads before
// dispatch, and detokenizes results on the way back. A scope is owned by
// exactly one run and cleared when the run ends.
type Scope struct {
	svc *Service

	mu       sync.Mutex
	tokens   map[string]string
	detected map[string]bool
}

// NewScope creates an empty per-run scope backed by this service.
func (s *Service) NewScope() *Scope {
	return &Scope{
		svc:      s,
		tokens:   make(map[string]string),
		detected: make(map[string]bool),
	}
}

// Tokenize rewrites data and folds the new tokens into the scope's map.
func (sc *Scope) Tokenize(data interface{}) (string, error) {
	result, err := sc.svc.Tokenize(data)
	if err != nil {
		return "", err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	for token, original := range result.TokenMap {
		sc.tokens[token] = original
	}
	for _, t := range result.DetectedTypes {
		sc.detected[t] = true
	}
	return result.Tokenized, nil
}

// Detokenize restores every token accumulated so far.
func (sc *Scope) Detokenize(text string) string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.svc.Detokenize(text, sc.tokens)
}

// Lookup returns the original substring for a token.
func (sc *Scope) Lookup(token string) (string, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	original, ok := sc.tokens[token]
	return original, ok
}

// TokenCount returns the number of accumulated tokens.
func (sc *Scope) TokenCount() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.tokens)
}

// DetectedTypes returns the categories seen across all calls in this scope.
func (sc *Scope) DetectedTypes() []string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	types := make([]string, 0, len(sc.detected))
	for t := range sc.detected {
		types = append(types, t)
	}
	return types
}

// Clear drops all accumulated tokens. Called when the owning run terminates
// so original values do not outlive the run.
func (sc *Scope) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.tokens = make(map[string]string)
	sc.detected = make(map[string]bool)
}
