package ingest

// Chunk represents one sentence-bounded segment of normalized document text.
type Chunk struct {
	Text  string // Chunk text, sentences joined by single spaces
	Start int    // Rune offset of the first sentence within the normalized text
}

// ExtractedText is the output of text extraction for one document.
// PageEnds holds the cumulative rune end offset of each page within Text;
// it is empty for formats without page-break data.
type ExtractedText struct {
	Text     string
	PageEnds []int
}
