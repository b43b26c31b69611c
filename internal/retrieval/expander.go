package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"talkingbird/internal/contextutil"
	"talkingbird/internal/llm"
)

// maxAlternatives is the number of alternative phrasings kept per query.
const maxAlternatives = 2

const expansionPrompt = `Generate 2 alternative phrasings of this search query that would help find relevant documents. Use synonyms and related terms.

Query: %q

Return ONLY a JSON array of 2 strings, no explanation:
["alternative 1", "alternative 2"]`

var jsonArrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// Expander widens recall by generating alternative phrasings of a query.
// It is a fail-soft enrichment step: any failure falls back to the
// original query alone and is never propagated.
type Expander struct {
	completer Completer
}

// NewExpander creates a new query expander.
func NewExpander(completer Completer) *Expander {
	return &Expander{completer: completer}
}

// Expand returns the original query followed by up to two alternative
// phrasings. The original is always first and the result is never empty.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	logger := contextutil.LoggerFromContext(ctx)

	content, err := e.completer.Complete(ctx, "", fmt.Sprintf(expansionPrompt, query), llm.CompleteParams{
		Temperature: 0.3,
		MaxTokens:   150,
	})
	if err != nil {
		logger.WarnContext(ctx, "query expansion failed, using original query", "error", err)
		return []string{query}
	}

	alternatives := parseAlternatives(content)
	if len(alternatives) == 0 {
		logger.DebugContext(ctx, "no usable alternatives in expansion response")
		return []string{query}
	}

	variations := []string{query}
	for _, alt := range alternatives {
		if len(variations) > maxAlternatives {
			break
		}
		if strings.EqualFold(strings.TrimSpace(alt), strings.TrimSpace(query)) {
			continue
		}
		variations = append(variations, alt)
	}

	logger.DebugContext(ctx, "query expanded", "variations", len(variations))
	return variations
}

// parseAlternatives extracts the first well-formed JSON string array found
// in the model response. Returns nil when none exists.
func parseAlternatives(content string) []string {
	match := jsonArrayRe.FindString(content)
	if match == "" {
		return nil
	}

	var alternatives []string
	if err := json.Unmarshal([]byte(match), &alternatives); err != nil {
		return nil
	}

	out := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		if strings.TrimSpace(alt) == "" {
			continue
		}
		out = append(out, alt)
	}
	return out
}
