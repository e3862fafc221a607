package tokenizer

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	svc := NewService()

	assert.NotNil(t, svc)
	assert.Len(t, svc.patterns, len(builtinPatterns), "Every builtin pattern should compile")
	assert.Len(t, svc.session, 6)
}

func TestTokenize_EmailAndPhone(t *testing.T) {
	svc := NewService()
	input := `{"email": "u@x.com", "phone": "555-123-4567"}`

	result, err := svc.Tokenize(input)
	require.NoError(t, err)

	assert.NotContains(t, result.Tokenized, "u@x.com", "Email literal should be replaced")
	assert.NotContains(t, result.Tokenized, "555-123-4567", "Phone literal should be replaced")
	assert.Equal(t, 2, result.TokenCount)
	assert.Equal(t, []string{"email", "phone"}, result.DetectedTypes)

	restored := svc.Detokenize(result.Tokenized, result.TokenMap)
	assert.Equal(t, input, restored, "Detokenize should restore the original text")
}

func TestTokenize_RoundTrip(t *testing.T) {
	svc := NewService()

	tests := []struct {
		name  string
		input string
	}{
		{"email", "contact alice@example.org for details"},
		{"phone", "call +1 (415) 555-2671 tomorrow"},
		{"ssn", "ssn on file: 123-45-6789"},
		{"credit card", "card 4111-1111-1111-1111 expires soon"},
		{"ipv4", "request came from 192.168.10.44"},
		{"date of birth", "born 12/31/1990 in Ohio"},
		{"api key", "use sk-abcdef0123456789abcdef to authenticate"},
		{"passport", "passport AB1234567 checked"},
		{"mixed", "alice@example.org reported 10.0.0.1 and 123-45-6789 together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Tokenize(tt.input)
			require.NoError(t, err)

			assert.NotEqual(t, tt.input, result.Tokenized, "Input should contain PII to replace")
			assert.Positive(t, result.TokenCount)

			restored := svc.Detokenize(result.Tokenized, result.TokenMap)
			assert.Equal(t, tt.input, restored)
		})
	}
}

func TestTokenize_NoPII(t *testing.T) {
	svc := NewService()
	input := "nothing sensitive in here"

	result, err := svc.Tokenize(input)
	require.NoError(t, err)

	assert.Equal(t, input, result.Tokenized)
	assert.Empty(t, result.TokenMap)
	assert.Empty(t, result.DetectedTypes)
	assert.Zero(t, result.TokenCount)
}

func TestTokenize_TokenFormat(t *testing.T) {
	svc := NewService()

	result, err := svc.Tokenize("reach me at bob@corp.io")
	require.NoError(t, err)
	require.Len(t, result.TokenMap, 1)

	tokenShape := regexp.MustCompile(`^__EMAIL_[0-9a-f]{6}\d+__$`)
	for token, original := range result.TokenMap {
		assert.Regexp(t, tokenShape, token)
		assert.Equal(t, "bob@corp.io", original)
		assert.Contains(t, result.Tokenized, token)
	}
}

func TestTokenize_TokensAreUnique(t *testing.T) {
	svc := NewService()

	result, err := svc.Tokenize("first a@x.com then b@x.com then c@x.com")
	require.NoError(t, err)

	assert.Equal(t, 3, result.TokenCount, "Each occurrence should mint a distinct token")
	restored := svc.Detokenize(result.Tokenized, result.TokenMap)
	assert.Equal(t, "first a@x.com then b@x.com then c@x.com", restored)
}

func TestTokenize_NonStringData(t *testing.T) {
	svc := NewService()
	data := map[string]interface{}{"email": "u@x.com"}

	result, err := svc.Tokenize(data)
	require.NoError(t, err)

	assert.NotContains(t, result.Tokenized, "u@x.com")
	restored := svc.Detokenize(result.Tokenized, result.TokenMap)
	assert.JSONEq(t, `{"email": "u@x.com"}`, restored)
}

func TestTokenize_OrderingSSNBeforeBankAccount(t *testing.T) {
	svc := NewService()

	// A dashed SSN must be claimed by the ssn category, not by a later
	// digit-run category after the dashes are gone.
	result, err := svc.Tokenize("id 123-45-6789 on record")
	require.NoError(t, err)

	assert.Equal(t, []string{"ssn"}, result.DetectedTypes)
	assert.Equal(t, 1, result.TokenCount)
}

func TestContainsPII(t *testing.T) {
	svc := NewService()

	assert.True(t, svc.ContainsPII("mail me at a@b.co"))
	assert.True(t, svc.ContainsPII(map[string]interface{}{"ip": "10.1.2.3"}))
	assert.False(t, svc.ContainsPII("plain text"))
	assert.False(t, svc.ContainsPII(42))
}

func TestDetokenize_UnknownTokensLeftInPlace(t *testing.T) {
	svc := NewService()

	text := "result __EMAIL_deadbe99__ stays"
	restored := svc.Detokenize(text, map[string]string{})
	assert.Equal(t, text, restored)
}

func TestScope_AccumulatesAcrossCalls(t *testing.T) {
	svc := NewService()
	scope := svc.NewScope()

	first, err := scope.Tokenize("from a@x.com")
	require.NoError(t, err)
	second, err := scope.Tokenize("to 192.168.0.1")
	require.NoError(t, err)

	assert.Equal(t, 2, scope.TokenCount())
	assert.ElementsMatch(t, []string{"email", "ipv4"}, scope.DetectedTypes())

	// Either call's output detokenizes through the shared map.
	assert.Equal(t, "from a@x.com", scope.Detokenize(first))
	assert.Equal(t, "to 192.168.0.1", scope.Detokenize(second))
}

func TestScope_Lookup(t *testing.T) {
	svc := NewService()
	scope := svc.NewScope()

	tokenized, err := scope.Tokenize("ping 10.0.0.7 now")
	require.NoError(t, err)

	tokenShape := regexp.MustCompile(`__IPV4_[0-9a-f]{6}\d+__`)
	token := tokenShape.FindString(tokenized)
	require.NotEmpty(t, token)

	original, ok := scope.Lookup(token)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.7", original)

	_, ok = scope.Lookup("__IPV4_nope1__")
	assert.False(t, ok)
}

func TestScope_Clear(t *testing.T) {
	svc := NewService()
	scope := svc.NewScope()

	tokenized, err := scope.Tokenize("secret a@x.com")
	require.NoError(t, err)
	require.Equal(t, 1, scope.TokenCount())

	scope.Clear()

	assert.Zero(t, scope.TokenCount())
	assert.Empty(t, scope.DetectedTypes())
	assert.Equal(t, tokenized, scope.Detokenize(tokenized), "Cleared scope cannot restore anything")
}
