package answer

import "regexp"

// Confidence tiers for generated answers.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

var citationRe = regexp.MustCompile(`\[[^\[\]]+\]`)

// EstimateConfidence classifies answer reliability from ranking statistics
// and the presence of a citation marker in the answer text.
func EstimateConfidence(avgSimilarity float64, numCandidates int, hasCitation bool) string {
	if avgSimilarity > 0.70 && numCandidates >= 3 && hasCitation {
		return ConfidenceHigh
	}
	if avgSimilarity > 0.55 && numCandidates >= 2 {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// ContainsCitation reports whether the answer text carries a bracketed
// source reference such as "[Handbook.pdf, Page 3]".
func ContainsCitation(answer string) bool {
	return citationRe.MatchString(answer)
}
