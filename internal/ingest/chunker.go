package ingest

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// paragraphFallbackMin is the text length above which a failure to find
// sentence boundaries triggers the paragraph-splitting fallback.
const paragraphFallbackMin = 200

// Chunker splits normalized text into overlapping, sentence-bounded chunks.
// TargetSize caps chunk length in runes; a chunk only exceeds it when a
// single sentence alone is longer. Overlap caps the combined length of the
// trailing sentences of one chunk reused as the head of the next.
type Chunker struct {
	TargetSize int
	Overlap    int
}

// NewChunker creates a chunker with the given size bounds (in runes).
func NewChunker(targetSize, overlap int) *Chunker {
	return &Chunker{
		TargetSize: targetSize,
		Overlap:    overlap,
	}
}

var (
	spaceRunRe  = regexp.MustCompile(`[ \t]+`)
	blankLineRe = regexp.MustCompile(`\n{3,}`)
	lineEdgeRe  = regexp.MustCompile(` *\n *`)
	carriageRe  = regexp.MustCompile(`\r\n?`)
)

// NormalizeText collapses whitespace while preserving paragraph breaks:
// runs of spaces and tabs become a single space, line endings are unified,
// and runs of blank lines collapse to one blank line. Idempotent.
func NormalizeText(text string) string {
	text = carriageRe.ReplaceAllString(text, "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = lineEdgeRe.ReplaceAllString(text, "\n")
	text = blankLineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// sentence is a text unit produced by splitting, with its rune offset in
// the normalized input.
type sentence struct {
	text  string
	start int
}

// sentenceAbbreviations are words whose trailing period does not end a
// sentence.
var sentenceAbbreviations = map[string]struct{}{
	"dr": {}, "mr": {}, "mrs": {}, "ms": {}, "prof": {}, "rev": {},
	"sr": {}, "jr": {}, "st": {}, "vs": {}, "etc": {}, "inc": {},
	"ltd": {}, "co": {}, "corp": {}, "dept": {}, "univ": {}, "fig": {},
	"no": {}, "al": {}, "approx": {},
}

func isOpeningMark(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '{', '“', '‘', '«':
		return true
	}
	return false
}

// isSentenceBoundary reports whether the terminal mark at rune index i ends
// a sentence. A mark qualifies only when followed by whitespace and then an
// uppercase letter, digit, or opening quote/bracket. For periods, the word
// immediately before the mark must not be a known abbreviation or a single
// capital letter (an initial).
func isSentenceBoundary(runes []rune, i int) bool {
	if runes[i] == '.' {
		// Collect the letter run immediately before the mark.
		j := i - 1
		for j >= 0 && unicode.IsLetter(runes[j]) {
			j--
		}
		word := string(runes[j+1 : i])
		if utf8.RuneCountInString(word) == 1 && unicode.IsUpper([]rune(word)[0]) {
			return false
		}
		if _, ok := sentenceAbbreviations[strings.ToLower(word)]; ok {
			return false
		}
	}

	if i == len(runes)-1 {
		return true
	}
	if !unicode.IsSpace(runes[i+1]) {
		return false
	}
	k := i + 1
	for k < len(runes) && unicode.IsSpace(runes[k]) {
		k++
	}
	if k == len(runes) {
		return true
	}
	next := runes[k]
	return unicode.IsUpper(next) || unicode.IsDigit(next) || isOpeningMark(next)
}

// splitSentences splits normalized text into sentences with rune offsets.
func splitSentences(text string) []sentence {
	runes := []rune(text)
	var out []sentence
	segStart := 0

	appendSegment := func(from, to int) {
		// Trim surrounding whitespace while keeping the offset accurate.
		for from < to && unicode.IsSpace(runes[from]) {
			from++
		}
		for to > from && unicode.IsSpace(runes[to-1]) {
			to--
		}
		if from < to {
			out = append(out, sentence{text: string(runes[from:to]), start: from})
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if !isSentenceBoundary(runes, i) {
			continue
		}
		appendSegment(segStart, i+1)
		segStart = i + 1
	}
	appendSegment(segStart, len(runes))

	return out
}

// splitParagraphs splits normalized text on blank-line boundaries,
// preserving rune offsets. Fallback for text without sentence punctuation.
func splitParagraphs(text string) []sentence {
	runes := []rune(text)
	var out []sentence
	segStart := 0

	for i := 0; i+1 < len(runes); i++ {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			if seg := strings.TrimSpace(string(runes[segStart:i])); seg != "" {
				start := segStart
				for start < i && unicode.IsSpace(runes[start]) {
					start++
				}
				out = append(out, sentence{text: seg, start: start})
			}
			segStart = i + 2
		}
	}
	if seg := strings.TrimSpace(string(runes[segStart:])); seg != "" {
		start := segStart
		for start < len(runes) && unicode.IsSpace(runes[start]) {
			start++
		}
		out = append(out, sentence{text: seg, start: start})
	}

	return out
}

// joinedLen returns the rune length of sentences joined by single spaces.
func joinedLen(sentences []sentence) int {
	if len(sentences) == 0 {
		return 0
	}
	total := len(sentences) - 1
	for _, s := range sentences {
		total += utf8.RuneCountInString(s.text)
	}
	return total
}

func joinSentences(sentences []sentence) Chunk {
	parts := make([]string, len(sentences))
	for i, s := range sentences {
		parts[i] = s.text
	}
	return Chunk{
		Text:  strings.Join(parts, " "),
		Start: sentences[0].start,
	}
}

// overlapSuffix returns the longest suffix of sentences whose joined length
// fits within bound, greedy from the end. The earliest sentence that fully
// fits is included.
func overlapSuffix(sentences []sentence, bound int) []sentence {
	if bound <= 0 {
		return nil
	}
	total := 0
	i := len(sentences)
	for i > 0 {
		add := utf8.RuneCountInString(sentences[i-1].text)
		if total > 0 {
			add++ // joining space
		}
		if total+add > bound {
			break
		}
		total += add
		i--
	}
	if i == len(sentences) {
		return nil
	}
	return sentences[i:]
}

// Chunk splits text into ordered, overlapping, sentence-bounded chunks.
// Empty or whitespace-only input yields an empty result. Text that fits
// within TargetSize is returned whole as a single chunk.
func (c *Chunker) Chunk(text string) []Chunk {
	text = NormalizeText(text)
	if text == "" {
		return nil
	}

	if utf8.RuneCountInString(text) <= c.TargetSize {
		return []Chunk{{Text: text, Start: 0}}
	}

	sentences := splitSentences(text)
	if len(sentences) <= 1 && utf8.RuneCountInString(text) > paragraphFallbackMin {
		if paragraphs := splitParagraphs(text); len(paragraphs) > 1 {
			sentences = paragraphs
		}
	}
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var cur []sentence

	for _, s := range sentences {
		sLen := utf8.RuneCountInString(s.text)

		if len(cur) > 0 && joinedLen(cur)+1+sLen > c.TargetSize {
			chunks = append(chunks, joinSentences(cur))

			// Seed the next chunk with trailing sentences of the one just
			// flushed, dropping from the front anything that would push
			// the incoming sentence past the target.
			seed := overlapSuffix(cur, c.Overlap)
			for len(seed) > 0 && joinedLen(seed)+1+sLen > c.TargetSize {
				seed = seed[1:]
			}
			cur = append([]sentence(nil), seed...)
		}

		cur = append(cur, s)
	}

	if len(cur) > 0 {
		chunks = append(chunks, joinSentences(cur))
	}

	return chunks
}

// PageForOffset maps a rune offset in extracted text to a 1-indexed page
// number: the smallest page whose cumulative end offset exceeds the offset.
// Returns 0 (unknown) when no page-break data is available.
func PageForOffset(pageEnds []int, offset int) int {
	for i, end := range pageEnds {
		if offset < end {
			return i + 1
		}
	}
	if n := len(pageEnds); n > 0 {
		return n
	}
	return 0
}

// ApproxTokenCount approximates token count as whitespace-separated words.
func ApproxTokenCount(text string) int {
	return len(strings.Fields(text))
}
