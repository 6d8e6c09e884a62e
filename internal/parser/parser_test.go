package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"course-rag/internal/models"
)

func TestExtractText(t *testing.T) {
	doc, err := Extract("notes.txt", []byte("The mitochondria is the powerhouse of the cell."))
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Contains(t, doc.Pages[0].Text, "mitochondria")
	assert.Equal(t, "notes.txt", doc.Source)
}

func TestExtractMarkdownStripsMarkup(t *testing.T) {
	src := []byte("# Cell Biology\n\nThe **mitochondria** is the powerhouse of the cell.\n\n- cristae\n- matrix\n")
	doc, err := Extract("notes.md", src)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	text := doc.Pages[0].Text
	assert.Contains(t, text, "Cell Biology")
	assert.Contains(t, text, "mitochondria is the powerhouse")
	assert.Contains(t, text, "cristae")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
}

func TestExtractXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Grades")
	require.NoError(t, err)
	row := sheet.AddRow()
	row.AddCell().Value = "Student"
	row.AddCell().Value = "Score"
	row = sheet.AddRow()
	row.AddCell().Value = "Ada"
	row.AddCell().Value = "95"

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	doc, err := Extract("grades.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Contains(t, doc.Pages[0].Text, "Grades")
	assert.Contains(t, doc.Pages[0].Text, "Ada")
}

func TestExtractUnsupportedFormat(t *testing.T) {
	_, err := Extract("malware.exe", []byte{0x4d, 0x5a})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := Extract("broken.pdf", []byte("%PDF-1.7\nthis is not a valid pdf body"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrCorruptDocument)
}

func TestExtractCorruptDOCX(t *testing.T) {
	_, err := Extract("broken.docx", []byte("not a zip archive"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrCorruptDocument)
}

func TestStripLayoutLines(t *testing.T) {
	in := "Intro to Biology\n12\nPage 3 of 20\nMembranes regulate transport."
	out := stripLayoutLines(in)
	assert.Contains(t, out, "Intro to Biology")
	assert.Contains(t, out, "Membranes regulate transport.")
	assert.NotContains(t, out, "12\n")
	assert.NotContains(t, out, "Page 3 of 20")
}
