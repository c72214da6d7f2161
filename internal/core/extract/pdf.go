package extract

import (
	"bytes"
	"log"

	"code.sajari.com/docconv"
)

// extractPDF converts a PDF with docconv, which concatenates per-page text
// with newline separators; pages without text contribute nothing. Conversion
// failures degrade to an empty string rather than failing the extraction.
func extractPDF(data []byte) string {
	res, err := docconv.Convert(bytes.NewReader(data), "application/pdf", false)
	if err != nil {
		log.Printf("pdf extraction failed: %v", err)
		return ""
	}
	return res.Body
}
