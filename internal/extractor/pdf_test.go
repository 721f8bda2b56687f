package extractor

import (
	"testing"

	"atsforge/internal/errors"
)

func TestPDFTextRejectsNonPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty input", []byte{}},
		{"plain text", []byte("just a text resume, not a PDF")},
		{"truncated header", []byte("%PDF-1.4")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PDFText(tt.data)
			if err == nil {
				t.Fatal("Expected error for non-PDF input")
			}
			if !errors.IsCode(err, errors.ErrCodeExtractionFailed) {
				t.Errorf("Expected EXTRACTION_FAILED code, got %v", err)
			}
		})
	}
}

func TestPDFFileTextMissingFile(t *testing.T) {
	_, err := PDFFileText("/nonexistent/resume.pdf")
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !errors.IsCode(err, errors.ErrCodeExtractionFailed) {
		t.Errorf("Expected EXTRACTION_FAILED code, got %v", err)
	}
}
