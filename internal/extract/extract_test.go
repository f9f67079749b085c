package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatPDF, FormatOf("Report.PDF"))
	assert.Equal(t, FormatDOCX, FormatOf("notes.final.docx"))
	assert.Equal(t, Format(""), FormatOf("README"))
}

func TestAccepted(t *testing.T) {
	for _, name := range []string{"a.txt", "b.PDF", "c.doc", "d.Docx"} {
		assert.True(t, Accepted(name), name)
	}
	for _, name := range []string{"virus.exe", "image.png", "noext", "txt"} {
		assert.False(t, Accepted(name), name)
	}
}

func TestParseFormats(t *testing.T) {
	formats, err := ParseFormats(" txt, .PDF ,,docx")
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatText, FormatPDF, FormatDOCX}, formats)

	_, err = ParseFormats("txt,exe")
	assert.Error(t, err)
}

func TestPlainTextRoundTrip(t *testing.T) {
	reg := NewRegistry(FormatText)
	original := "Recursion is self-reference.\nÜnïcödé ✓\r\n"

	text, err := reg.Extract("notes.txt", []byte(original))
	require.NoError(t, err)
	assert.Equal(t, original, text)
}

func TestPlainTextRejectsInvalidUTF8(t *testing.T) {
	_, err := NewRegistry().Extract("bad.txt", []byte{0xff, 0xfe, 0x00})
	require.Error(t, err)

	var extractErr *Error
	require.True(t, errors.As(err, &extractErr))
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Equal(t, "bad.txt", extractErr.Filename)
}

func TestRegistryDegradesToPlainText(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []Format{FormatText}, reg.Formats())

	_, err := reg.Extract("slides.pdf", []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "Unsupported file format: pdf", err.Error())
}

func TestRegistryCustomExtractor(t *testing.T) {
	reg := NewRegistry(FormatText)
	reg.Register(FormatPDF, ExtractorFunc(func([]byte) (string, error) { return "page one", nil }))

	text, err := reg.Extract("x.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "page one", text)
}

func TestPDFCorrupt(t *testing.T) {
	_, err := NewRegistry(FormatPDF).Extract("broken.pdf", []byte("definitely not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDOCXParagraphs(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>Pointers hold</w:t></w:r><w:r><w:t xml:space="preserve"> addresses.</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>line</w:t></w:r></w:p>`)

	text, err := NewRegistry(FormatDOCX).Extract("lecture.docx", data)
	require.NoError(t, err)
	assert.Equal(t, "Pointers hold addresses.\nSecond\tline", text)
}

func TestDOCAcceptsOOXMLAndRejectsBinary(t *testing.T) {
	reg := NewRegistry(FormatDOC)

	text, err := reg.Extract("old.doc", buildDOCX(t, `<w:p><w:r><w:t>hello</w:t></w:r></w:p>`))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	binary := append(append([]byte{}, oleSignature...), make([]byte, 64)...)
	_, err = reg.Extract("older.doc", binary)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDOCXMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = NewRegistry(FormatDOCX).Extract("empty.docx", buf.Bytes())
	assert.ErrorIs(t, err, ErrCorrupt)
}
