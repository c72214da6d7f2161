package extract

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/docharbor/docharbor/internal/core"
)

var _ core.TextExtractor = (*Extractor)(nil)

type format int

const (
	formatPlain format = iota
	formatPDF
	formatSpreadsheet
	formatPresentation
)

var contentTypeFormats = map[string]format{
	"application/pdf": formatPDF,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         formatSpreadsheet,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": formatPresentation,
	"text/plain": formatPlain,
}

var extensionFormats = map[string]format{
	".pdf":  formatPDF,
	".xlsx": formatSpreadsheet,
	".pptx": formatPresentation,
	".txt":  formatPlain,
}

var pdfMagic = []byte("%PDF-")
var zipMagic = []byte("PK\x03\x04")

// Extractor converts raw document bytes into a linear text stream. It never
// returns an error: any unrecoverable decode problem degrades to an empty
// string, which the ingestion pipeline treats as "no text content extracted".
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract selects a format-specific path using, in order of precedence, the
// declared content type, the filename extension and a byte-signature sniff,
// then falls back to a best-effort UTF-8 decode.
func (e *Extractor) Extract(contentType, filename string, data []byte) string {
	switch detectFormat(contentType, filename, data) {
	case formatPDF:
		return extractPDF(data)
	case formatSpreadsheet:
		return extractSpreadsheet(data)
	case formatPresentation:
		return extractPresentation(data)
	default:
		return extractPlain(data)
	}
}

func detectFormat(contentType, filename string, data []byte) format {
	ct := contentType
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if f, ok := contentTypeFormats[strings.ToLower(strings.TrimSpace(ct))]; ok {
		return f
	}
	if f, ok := extensionFormats[strings.ToLower(filepath.Ext(filename))]; ok {
		return f
	}
	return sniffFormat(data)
}

func sniffFormat(data []byte) format {
	if bytes.HasPrefix(data, pdfMagic) {
		return formatPDF
	}
	if bytes.HasPrefix(data, zipMagic) {
		// Office OOXML containers are zip archives; peek inside to tell them
		// apart.
		switch {
		case zipContains(data, "xl/workbook.xml"):
			return formatSpreadsheet
		case zipContains(data, "ppt/presentation.xml"):
			return formatPresentation
		}
	}
	return formatPlain
}

// extractPlain decodes bytes as UTF-8, dropping invalid sequences.
func extractPlain(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}
