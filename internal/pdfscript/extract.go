// Package pdfscript turns PDF screenplays into the shared scene model.
//
// PDFs carry no structural markup, so the pipeline runs in two steps: plain
// text extraction, then model-assisted structuring of each deterministically
// split scene block. Pages without extractable text (typically scans) are
// recorded as warnings rather than failing the document; only a PDF with no
// extractable text at all is rejected.
package pdfscript

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"slate/internal/services"
)

// Extract pulls plain text from a PDF, page by page. Pages yielding no text
// produce a warning naming the page. The page count is capped so a hostile
// or broken file cannot stall the pipeline.
func Extract(data []byte, maxPages int) (text string, warnings []string, err error) {
	if len(data) == 0 {
		return "", nil, services.Wrap(services.ErrValidation, "parsing", "pdf_extract", "empty document", nil)
	}
	// The underlying reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, warnings = "", nil
			err = services.Wrap(services.ErrValidation, "parsing", "pdf_extract",
				fmt.Sprintf("malformed PDF: %v", r), nil)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, services.Wrap(services.ErrValidation, "parsing", "pdf_extract", "unreadable PDF", err)
	}

	pages := reader.NumPage()
	if pages == 0 {
		return "", nil, services.Wrap(services.ErrValidation, "parsing", "pdf_extract", "PDF has no pages", nil)
	}
	if maxPages > 0 && pages > maxPages {
		return "", nil, services.Wrap(services.ErrValidation, "parsing", "pdf_extract",
			fmt.Sprintf("PDF has %d pages, limit is %d", pages, maxPages), nil)
	}

	var builder strings.Builder
	extracted := 0
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			warnings = append(warnings, pageWarning(i))
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			warnings = append(warnings, pageWarning(i))
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
		extracted++
	}

	if extracted == 0 {
		return "", warnings, services.Wrap(services.ErrValidation, "parsing", "pdf_extract",
			"no extractable text in any page (scanned PDF requires OCR)", nil)
	}
	return builder.String(), warnings, nil
}

func pageWarning(page int) string {
	return fmt.Sprintf("page %d produced no extractable text (possible scan, OCR not performed)", page)
}
