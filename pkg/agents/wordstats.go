package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/openagora/agora/pkg/models"
)

// WordStatsAgent computes basic statistics over a text payload: character,
// word, and sentence counts plus the most frequent words.
type WordStatsAgent struct{}

const topWordLimit = 5

func (WordStatsAgent) ID() string { return "word-stats" }

func (WordStatsAgent) Describe() models.CapabilityCard {
	return models.CapabilityCard{
		Name:         "Word statistics",
		Description:  "Counts characters, words, and sentences and ranks the most frequent words",
		Version:      "1.1.0",
		Capabilities: []string{"text-analysis"},
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{
					"type":      "string",
					"minLength": 1,
				},
			},
			"required": []interface{}{"text"},
		},
	}
}

func (WordStatsAgent) Execute(ctx context.Context, in Input) (*Output, error) {
	text, _ := in.Payload["text"].(string)
	if text == "" {
		return nil, fmt.Errorf("word-stats: payload field 'text' must be a non-empty string")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in.emit(models.EventProgress, models.ProgressPayload{Percent: 25, Detail: "tokenizing"})

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}

	in.emit(models.EventProgress, models.ProgressPayload{Percent: 75, Detail: "ranking"})

	type wordCount struct {
		word  string
		count int
	}
	ranked := make([]wordCount, 0, len(counts))
	for w, c := range counts {
		ranked = append(ranked, wordCount{word: w, count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})
	if len(ranked) > topWordLimit {
		ranked = ranked[:topWordLimit]
	}
	top := make([]interface{}, len(ranked))
	for i, wc := range ranked {
		top[i] = map[string]interface{}{"word": wc.word, "count": wc.count}
	}

	// Consecutive terminators count as one sentence boundary.
	sentences := 0
	prevTerminator := false
	for _, r := range text {
		terminator := r == '.' || r == '!' || r == '?'
		if terminator && !prevTerminator {
			sentences++
		}
		prevTerminator = terminator
	}
	if sentences == 0 && len(words) > 0 {
		sentences = 1
	}

	return &Output{
		Result: map[string]interface{}{
			"characters":   len([]rune(text)),
			"words":        len(words),
			"unique_words": len(counts),
			"sentences":    sentences,
			"top_words":    top,
		},
	}, nil
}
