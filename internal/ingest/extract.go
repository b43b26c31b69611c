package ingest

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Extractor turns uploaded document files into plain normalized text.
type Extractor struct {
	markdown goldmark.Markdown
}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		markdown: goldmark.New(),
	}
}

// Extract reads the file at path and returns its normalized text content.
// For PDFs the result carries cumulative page end offsets so chunks can be
// attributed to pages; other formats have no page-break data.
func (e *Extractor) Extract(path, fileType string) (*ExtractedText, error) {
	switch strings.ToLower(fileType) {
	case "pdf":
		return extractPDF(path)
	case "docx":
		return extractDOCX(path)
	case "md", "markdown":
		return e.extractMarkdown(path)
	case "txt", "text":
		return extractPlainText(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
}

// extractPDF extracts text page by page, recording the cumulative rune end
// offset of each page in the concatenated normalized text.
func extractPDF(path string) (*ExtractedText, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var builder strings.Builder
	pageEnds := make([]int, 0, reader.NumPage())
	total := 0

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pageEnds = append(pageEnds, total)
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not lose the rest of the
			// document; the page end still has to be recorded to keep
			// page numbering aligned.
			pageEnds = append(pageEnds, total)
			continue
		}

		norm := NormalizeText(pageText)
		if norm != "" {
			if total > 0 {
				builder.WriteString("\n\n")
				total += 2
			}
			builder.WriteString(norm)
			total += utf8.RuneCountInString(norm)
		}
		pageEnds = append(pageEnds, total)
	}

	return &ExtractedText{Text: builder.String(), PageEnds: pageEnds}, nil
}

// docx XML element names from the WordprocessingML schema.
const (
	docxTextElement      = "t"
	docxParagraphElement = "p"
)

// extractDOCX pulls text runs out of word/document.xml inside the zip
// container, inserting paragraph breaks at paragraph boundaries.
func extractDOCX(path string) (*ExtractedText, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer func() {
		_ = zr.Close()
	}()

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("DOCX is missing word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read DOCX document: %w", err)
	}
	defer func() {
		_ = rc.Close()
	}()

	var builder strings.Builder
	decoder := xml.NewDecoder(rc)
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse DOCX XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == docxTextElement {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == docxTextElement {
				inText = false
			}
			if t.Name.Local == docxParagraphElement {
				builder.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(t)
			}
		}
	}

	return &ExtractedText{Text: NormalizeText(builder.String())}, nil
}

// extractMarkdown parses markdown and extracts plain text from the AST,
// separating block-level nodes with paragraph breaks.
func (e *Extractor) extractMarkdown(path string) (*ExtractedText, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown file: %w", err)
	}

	doc := e.markdown.Parser().Parse(text.NewReader(content))

	var builder strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			if builder.Len() > 0 {
				builder.WriteString("\n\n")
			}
		case *ast.Text:
			builder.Write(node.Segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				builder.WriteString(" ")
			}
		case *ast.String:
			builder.Write(node.Value)
		case *ast.CodeBlock:
			writeCodeLines(&builder, node.Lines(), content)
		case *ast.FencedCodeBlock:
			writeCodeLines(&builder, node.Lines(), content)
		}
		return ast.WalkContinue, nil
	})

	return &ExtractedText{Text: NormalizeText(builder.String())}, nil
}

func writeCodeLines(builder *strings.Builder, lines *text.Segments, content []byte) {
	if builder.Len() > 0 {
		builder.WriteString("\n\n")
	}
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		builder.Write(line.Value(content))
	}
}

func extractPlainText(path string) (*ExtractedText, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}
	return &ExtractedText{Text: NormalizeText(string(content))}, nil
}
