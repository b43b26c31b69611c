package retrieval

import (
	"math"
	"strings"
	"unicode"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25Index is an in-memory BM25 ranking model built per request over the
// filtered candidate pool, not the whole corpus.
type bm25Index struct {
	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

// newBM25Index builds a BM25 index over tokenized documents.
func newBM25Index(docs [][]string) *bm25Index {
	idx := &bm25Index{
		termFreqs: make([]map[string]int, len(docs)),
		docLens:   make([]int, len(docs)),
		idf:       make(map[string]float64),
	}

	docFreq := make(map[string]int)
	totalLen := 0

	for i, tokens := range docs {
		freq := make(map[string]int, len(tokens))
		for _, token := range tokens {
			freq[token]++
		}
		for term := range freq {
			docFreq[term]++
		}
		idx.termFreqs[i] = freq
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)
	}

	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}

	n := float64(len(docs))
	for term, df := range docFreq {
		idx.idf[term] = math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
	}

	return idx
}

// scores computes the BM25 score of every indexed document against the
// query tokens, in document order.
func (idx *bm25Index) scores(queryTokens []string) []float64 {
	out := make([]float64, len(idx.termFreqs))
	if idx.avgDocLen == 0 {
		return out
	}

	for i, freq := range idx.termFreqs {
		docLen := float64(idx.docLens[i])
		var score float64
		for _, term := range queryTokens {
			tf := float64(freq[term])
			if tf == 0 {
				continue
			}
			idf := idx.idf[term]
			score += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*docLen/idx.avgDocLen))
		}
		out[i] = score
	}

	return out
}

// tokenize lowercases text and extracts alphanumeric runs.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	return strings.Fields(builder.String())
}
