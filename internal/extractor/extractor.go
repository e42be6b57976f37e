// Package extractor turns stored documents into ordered page text.
//
// PDF files are extracted per page; any other file is treated as a single
// page of plain text. Extraction failures degrade per page to an empty
// string so one broken page never aborts a document.
package extractor

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/docvault/docvault/pkg/types"
)

// SnippetMaxChars bounds display snippets attached to chunks.
const SnippetMaxChars = 240

// Extract returns the 1-indexed, whitespace-normalized page texts of the
// document at path. It never fails on individual pages: a page whose text
// cannot be decoded contributes an empty string.
func Extract(path string) ([]types.Page, error) {
	if IsPDF(path) {
		return extractPDF(path)
	}
	return extractPlainText(path)
}

// IsPDF reports whether path looks like a PDF, by extension or by the
// %PDF- magic header.
func IsPDF(path string) bool {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	header := make([]byte, 5)
	if _, err := f.Read(header); err != nil {
		return false
	}
	return string(header) == "%PDF-"
}

func extractPDF(path string) ([]types.Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		// An unreadable PDF still gets recorded, with no extractable text.
		// The document stays in the vault and a later rebuild can recover
		// it once the parser or the file improves.
		return []types.Page{}, nil
	}
	defer func() { _ = f.Close() }()

	total := reader.NumPage()
	pages := make([]types.Page, 0, total)
	for i := 1; i <= total; i++ {
		pages = append(pages, types.Page{
			Number: i,
			Text:   NormalizeText(pageText(reader, i)),
		})
	}
	return pages, nil
}

// pageText extracts one page, recovering from parser panics on malformed
// content streams. Failed pages yield "".
func pageText(reader *pdf.Reader, num int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()
	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return content
}

func extractPlainText(path string) ([]types.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text := ""
	if utf8.Valid(data) {
		text = NormalizeText(string(data))
	}
	return []types.Page{{Number: 1, Text: text}}, nil
}

// NormalizeText collapses all runs of whitespace to single spaces and trims
// the ends.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// FirstSnippet returns a short display prefix of text, ellipsis-truncated
// at maxChars characters. Truncation counts runes so multi-byte text is
// never cut mid-character.
func FirstSnippet(text string, maxChars int) string {
	t := strings.TrimSpace(text)
	if maxChars <= 0 {
		maxChars = SnippetMaxChars
	}
	runes := []rune(t)
	if len(runes) <= maxChars {
		return t
	}
	return strings.TrimRight(string(runes[:maxChars-1]), " ") + "…"
}
