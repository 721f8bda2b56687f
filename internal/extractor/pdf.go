// Package extractor pulls plain text out of uploaded resume files.
package extractor

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"atsforge/internal/errors"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts the visible text of every page, plus any hyperlink
// annotations inlined as "[Link: url]" markers. Resume PDFs routinely hide
// GitHub and portfolio URLs behind display text like "Click Here"; surfacing
// the raw URLs lets the parser recover them.
func PDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
			"Failed to open PDF", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the rest
			continue
		}
		sb.WriteString(text)

		if links := pageLinks(page); len(links) > 0 {
			sb.WriteString("\n\n--- Links on this page ---\n")
			sb.WriteString(strings.Join(links, "\n"))
			sb.WriteString("\n------------------------\n")
		}
		sb.WriteString("\n\n")
	}

	out := sb.String()
	if strings.TrimSpace(out) == "" {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
			"PDF contains no extractable text", nil)
	}
	return out, nil
}

// PDFFileText reads a PDF from disk and extracts its text.
func PDFFileText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
			fmt.Sprintf("Failed to read PDF file: %s", path), err)
	}
	return PDFText(data)
}

// pageLinks collects the URI targets of Link annotations on a page.
// Annotation parsing is best effort; malformed entries are skipped.
func pageLinks(page pdf.Page) []string {
	annots := page.V.Key("Annots")
	if annots.Kind() != pdf.Array {
		return nil
	}

	var links []string
	for i := 0; i < annots.Len(); i++ {
		a := annots.Index(i)
		if a.Kind() != pdf.Dict {
			continue
		}
		if a.Key("Subtype").Name() != "Link" {
			continue
		}
		uri := a.Key("A").Key("URI")
		if uri.Kind() != pdf.String {
			continue
		}
		links = append(links, fmt.Sprintf("[Link: %s]", uri.RawString()))
	}
	return links
}
