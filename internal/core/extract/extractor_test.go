package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildXLSX(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Summary"))
	require.NoError(t, f.SetCellValue("Summary", "A1", "region"))
	require.NoError(t, f.SetCellValue("Summary", "B1", "total"))
	require.NoError(t, f.SetCellValue("Summary", "A2", "north"))
	require.NoError(t, f.SetCellValue("Summary", "C2", 42))
	// Row 3 left entirely empty.
	require.NoError(t, f.SetCellValue("Summary", "A4", "south"))

	_, err := f.NewSheet("Empty")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func buildPPTX(t *testing.T, slides map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("ppt/presentation.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><p:presentation/>`))
	require.NoError(t, err)

	for name, body := range slides {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractPlainText(t *testing.T) {
	e := New()
	assert.Equal(t, "hello world\n", e.Extract("text/plain", "notes.txt", []byte("hello world\n")))
}

func TestExtractPlainDropsInvalidUTF8(t *testing.T) {
	e := New()
	got := e.Extract("", "", []byte("ok\xff\xfealso ok"))
	assert.Equal(t, "okalso ok", got)
}

func TestExtractNeverErrorsOnGarbage(t *testing.T) {
	e := New()
	// Declared as a spreadsheet but not a valid archive: degrade to "".
	assert.Equal(t, "", e.Extract("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "x.xlsx", []byte("not a zip")))
	assert.Equal(t, "", e.Extract("", "deck.pptx", []byte("junk")))
}

func TestExtractSpreadsheet(t *testing.T) {
	e := New()
	got := e.Extract("", "report.xlsx", buildXLSX(t))

	want := "-- sheet: Summary --\n" +
		"region\ttotal\n" +
		"north\t42\n" +
		"south\n" +
		"-- sheet: Empty --\n"
	assert.Equal(t, want, got)
}

func TestExtractPresentation(t *testing.T) {
	e := New()

	slide1 := `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:sp><p:txBody>
    <a:p><a:r><a:t>Quarterly </a:t></a:r><a:r><a:t>review</a:t></a:r></a:p>
    <a:p><a:r><a:t>Agenda</a:t></a:r></a:p>
  </p:txBody></p:sp>
</p:sld>`
	slide2 := `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:graphicFrame><a:tbl>
    <a:tr>
      <a:tc><a:txBody><a:p><a:r><a:t>metric</a:t></a:r></a:p></a:txBody></a:tc>
      <a:tc><a:txBody><a:p><a:r><a:t>value</a:t></a:r></a:p></a:txBody></a:tc>
    </a:tr>
    <a:tr>
      <a:tc><a:txBody><a:p><a:r><a:t>revenue</a:t></a:r></a:p></a:txBody></a:tc>
      <a:tc><a:txBody><a:p></a:p></a:txBody></a:tc>
    </a:tr>
  </a:tbl></p:graphicFrame>
</p:sld>`

	data := buildPPTX(t, map[string]string{
		"ppt/slides/slide2.xml": slide2,
		"ppt/slides/slide1.xml": slide1,
	})

	got := e.Extract("", "deck.pptx", data)
	want := "-- slide 1 --\n" +
		"Quarterly review\n" +
		"Agenda\n" +
		"-- slide 2 --\n" +
		"metric\tvalue\n" +
		"revenue\n"
	assert.Equal(t, want, got)
}

func TestDetectFormatPrecedence(t *testing.T) {
	xlsx := buildXLSX(t)

	tests := []struct {
		name        string
		contentType string
		filename    string
		data        []byte
		want        format
	}{
		{"content type wins", "application/pdf", "file.xlsx", xlsx, formatPDF},
		{"content type with charset", "text/plain; charset=utf-8", "file.pdf", nil, formatPlain},
		{"extension when content type unknown", "application/octet-stream", "deck.pptx", nil, formatPresentation},
		{"pdf magic prefix", "", "", []byte("%PDF-1.7 rest"), formatPDF},
		{"zip sniffed as spreadsheet", "", "upload.bin", xlsx, formatSpreadsheet},
		{"unknown defaults to plain", "", "", []byte("just text"), formatPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectFormat(tt.contentType, tt.filename, tt.data))
		})
	}
}

func TestDetectFormatSniffsPresentation(t *testing.T) {
	data := buildPPTX(t, nil)
	assert.Equal(t, formatPresentation, detectFormat("", "", data))
}
