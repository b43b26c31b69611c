package answer

import (
	"context"
	"fmt"
	"strings"

	"talkingbird/internal/contextutil"
	"talkingbird/internal/llm"
	"talkingbird/internal/retrieval"
)

// Sentinel is the fixed response for unanswerable queries. It is also
// substituted when answer synthesis fails, so the caller always receives
// a response.
const Sentinel = "Not sure based on available information."

const systemInstruction = `You are Talking Bird, an AI assistant for the Office of Research.

CRITICAL RULES:
1. Answer ONLY using the provided document excerpts
2. NEVER use general knowledge or make assumptions
3. If the answer isn't explicitly in the documents, respond: "Not sure based on available information."
4. Always cite sources: [Document Name, Page X]
5. Do not speculate, compare, or make value judgments

PROHIBITED:
- Answering questions not covered in documents
- Making inferences beyond explicit text
- Providing opinions or recommendations
- Using phrases like "generally," "typically," "probably"`

var speculativePhrases = []string{
	"generally",
	"typically",
	"probably",
	"might",
	"could be",
	"i think",
	"based on my knowledge",
}

// Completer generates text from an instruction and input.
type Completer interface {
	Complete(ctx context.Context, instruction, input string, params llm.CompleteParams) (string, error)
}

// Result is a generated answer with its confidence classification.
type Result struct {
	Answer        string
	Confidence    string
	AvgSimilarity float64
	Speculative   bool
}

// Generator synthesizes grounded answers from ranked candidates.
type Generator struct {
	completer Completer
}

// NewGenerator creates a new answer generator.
func NewGenerator(completer Completer) *Generator {
	return &Generator{completer: completer}
}

// Generate produces a grounded answer for the query from the given
// candidates. Zero candidates yields the sentinel with LOW confidence.
// Completion failure also yields the sentinel; it is never an error.
func (g *Generator) Generate(ctx context.Context, query string, candidates []retrieval.Candidate) Result {
	logger := contextutil.LoggerFromContext(ctx)

	if len(candidates) == 0 {
		return Result{Answer: Sentinel, Confidence: ConfidenceLow}
	}

	input := fmt.Sprintf("Document excerpts:\n\n%s\n\nQuestion: %s", BuildContext(candidates), query)

	text, err := g.completer.Complete(ctx, systemInstruction, input, llm.CompleteParams{})
	if err != nil {
		logger.WarnContext(ctx, "answer generation failed, returning sentinel", "error", err)
		text = Sentinel
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = Sentinel
	}

	avg := averageSimilarity(candidates)
	result := Result{
		Answer:        text,
		AvgSimilarity: avg,
		Confidence:    EstimateConfidence(avg, len(candidates), ContainsCitation(text)),
		Speculative:   IsSpeculative(text),
	}

	if result.Speculative {
		logger.WarnContext(ctx, "answer contains speculative language", "query", query)
	}
	return result
}

// BuildContext renders candidates as labeled excerpts. Chunks without page
// attribution are labeled with the document name alone.
func BuildContext(candidates []retrieval.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if c.PageNumber > 0 {
			fmt.Fprintf(&b, "[%s, Page %d]\n%s", c.DocumentName, c.PageNumber, c.TextContent)
		} else {
			fmt.Fprintf(&b, "[%s]\n%s", c.DocumentName, c.TextContent)
		}
	}
	return b.String()
}

// IsSpeculative reports whether the answer uses hedging language that the
// grounding rules prohibit.
func IsSpeculative(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range speculativePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func averageSimilarity(candidates []retrieval.Candidate) float64 {
	var sum float64
	for _, c := range candidates {
		sum += c.Similarity
	}
	return sum / float64(len(candidates))
}
