package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slidePathPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPresentation walks the slides of a pptx file in order, emitting a
// header line per slide, the text of each shape, and one tab-joined line per
// table row. pptx is a zip of OOXML parts; the DrawingML elements of interest
// are a:t (text run), a:tbl/a:tr/a:tc (table) and p:sp (shape).
func extractPresentation(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		log.Printf("presentation extraction failed: %v", err)
		return ""
	}

	type slideFile struct {
		num  int
		file *zip.File
	}
	var slides []slideFile
	for _, f := range zr.File {
		if m := slidePathPattern.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slideFile{num: n, file: f})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var b strings.Builder
	for _, s := range slides {
		b.WriteString(fmt.Sprintf("-- slide %d --\n", s.num))

		rc, err := s.file.Open()
		if err != nil {
			log.Printf("presentation slide %d unreadable: %v", s.num, err)
			continue
		}
		for _, line := range slideLines(rc) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		rc.Close()
	}
	return b.String()
}

// slideLines parses one slide part and returns its text lines: one line per
// shape paragraph and one tab-joined line per table row with non-empty cells.
func slideLines(r io.Reader) []string {
	dec := xml.NewDecoder(r)

	var (
		lines     []string
		inTable   bool
		row       []string
		cell      strings.Builder
		paragraph strings.Builder
	)

	flushParagraph := func() {
		if text := strings.TrimSpace(paragraph.String()); text != "" {
			lines = append(lines, text)
		}
		paragraph.Reset()
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			// io.EOF ends the walk; malformed XML just truncates the slide.
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "tbl":
				inTable = true
			case "tr":
				row = row[:0]
			case "tc":
				cell.Reset()
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &el); err != nil {
					continue
				}
				if inTable {
					cell.WriteString(text)
				} else {
					paragraph.WriteString(text)
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "tc":
				if text := strings.TrimSpace(cell.String()); text != "" {
					row = append(row, text)
				}
			case "tr":
				if len(row) > 0 {
					lines = append(lines, strings.Join(row, "\t"))
				}
			case "tbl":
				inTable = false
			case "p":
				if !inTable {
					flushParagraph()
				}
			}
		}
	}
	flushParagraph()
	return lines
}

// zipContains reports whether the archive has an entry with the given name.
func zipContains(data []byte, name string) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}
