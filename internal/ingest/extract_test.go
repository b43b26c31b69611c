package ingest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestExtractPlainText(t *testing.T) {
	path := writeTempFile(t, "notes.txt", "Line one.\r\n\r\n\r\nLine   two.")

	extracted, err := NewExtractor().Extract(path, "txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extracted.Text != "Line one.\n\nLine two." {
		t.Fatalf("unexpected text: %q", extracted.Text)
	}
	if len(extracted.PageEnds) != 0 {
		t.Fatalf("plain text should carry no page data, got %v", extracted.PageEnds)
	}
}

func TestExtractMarkdown(t *testing.T) {
	md := `# Travel Policy

Employees book through the portal.
Receipts are required.

- submit within 30 days
- use the corporate card

` + "```\nignored = false\n```\n"

	path := writeTempFile(t, "policy.md", md)

	extracted, err := NewExtractor().Extract(path, "md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Travel Policy",
		"Employees book through the portal. Receipts are required.",
		"submit within 30 days",
		"use the corporate card",
		"ignored = false",
	} {
		if !strings.Contains(extracted.Text, want) {
			t.Errorf("expected text to contain %q, got %q", want, extracted.Text)
		}
	}
	if strings.Contains(extracted.Text, "#") {
		t.Errorf("markdown syntax should be stripped, got %q", extracted.Text)
	}
}

func TestExtractDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.docx")
	writeMinimalDOCX(t, path, []string{"First paragraph of the memo.", "Second paragraph here."})

	extracted, err := NewExtractor().Extract(path, "docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "First paragraph of the memo.\n\nSecond paragraph here."
	if extracted.Text != want {
		t.Fatalf("expected %q, got %q", want, extracted.Text)
	}
}

func TestExtractDOCXMissingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	zw := zip.NewWriter(f)
	if _, err := zw.Create("word/other.xml"); err != nil {
		t.Fatalf("failed to build zip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	_ = f.Close()

	if _, err := NewExtractor().Extract(path, "docx"); err == nil {
		t.Fatal("expected error for DOCX without word/document.xml")
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	if _, err := NewExtractor().Extract("whatever.xls", "xls"); err == nil {
		t.Fatal("expected error for unsupported file type")
	}
}

func writeMinimalDOCX(t *testing.T, path string, paragraphs []string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create docx: %v", err)
	}
	defer func() {
		_ = f.Close()
	}()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("failed to create document.xml: %v", err)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)

	if _, err := w.Write([]byte(b.String())); err != nil {
		t.Fatalf("failed to write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close docx: %v", err)
	}
}
