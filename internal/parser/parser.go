package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"course-rag/internal/models"
)

// Page holds the extracted plain text of one page (or slide/sheet) of a
// material. Formats without pages produce a single page numbered 1.
type Page struct {
	Number int
	Text   string
}

// Document is the plain-text form of one uploaded material.
type Document struct {
	Source string
	Pages  []Page
}

// Extract converts the raw bytes of an uploaded material into plain text,
// dispatching on the file extension. Unknown extensions fail with
// models.ErrUnsupportedFormat; parse failures with models.ErrCorruptDocument.
func Extract(filename string, data []byte) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		pages []Page
		err   error
	)
	switch ext {
	case ".pdf":
		pages, err = extractPDF(data)
	case ".docx":
		pages, err = extractDOCX(data)
	case ".pptx":
		pages, err = extractPPTX(data)
	case ".xlsx":
		pages, err = extractXLSX(data)
	case ".ods":
		pages, err = extractODS(data)
	case ".md", ".markdown":
		pages, err = extractMarkdown(data)
	case ".txt":
		pages = []Page{{Number: 1, Text: string(data)}}
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCorruptDocument, err)
	}
	return &Document{Source: filename, Pages: pages}, nil
}

func extractPDF(data []byte) (pages []Page, err error) {
	// The pdf library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		pages = append(pages, Page{Number: i, Text: stripLayoutLines(text)})
	}
	return pages, nil
}

func extractDOCX(data []byte) ([]Page, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = xmlTagRe.ReplaceAllString(content, "")
	return []Page{{Number: 1, Text: content}}, nil
}

func extractPPTX(data []byte) ([]Page, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	var pages []Page
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	for i, name := range names {
		f, err := zr.Open(name)
		if err != nil {
			return nil, err
		}
		raw, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		text := extractDrawingText(string(raw))
		if strings.TrimSpace(text) != "" {
			pages = append(pages, Page{Number: i + 1, Text: text})
		}
	}
	return pages, nil
}

func extractXLSX(data []byte) ([]Page, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, err
	}
	var pages []Page
	for i, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString("Sheet: " + sheet.Name + "\n")
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, Page{Number: i + 1, Text: text.String()})
	}
	return pages, nil
}

func extractODS(data []byte) ([]Page, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []Page
	for i, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString("Sheet: " + name + "\n")
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
		pages = append(pages, Page{Number: i + 1, Text: text.String()})
	}
	return pages, nil
}

// extractMarkdown walks the goldmark AST and collects text content, dropping
// markup so headings and emphasis do not leak into chunks.
func extractMarkdown(data []byte) ([]Page, error) {
	md := goldmark.New()
	root := md.Parser().Parse(gtext.NewReader(data))

	var buf strings.Builder
	err := gast.Walk(root, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*gast.Text); ok {
				buf.Write(t.Segment.Value(data))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
			return gast.WalkContinue, nil
		}
		if n.Type() == gast.TypeBlock {
			buf.WriteByte('\n')
		}
		return gast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return []Page{{Number: 1, Text: buf.String()}}, nil
}

var (
	xmlTagRe   = regexp.MustCompile(`<[^>]+>`)
	pageNumRe  = regexp.MustCompile(`^\s*(?:[Pp]age\s+)?\d{1,4}(?:\s+of\s+\d{1,4})?\s*$`)
	drawTextRe = regexp.MustCompile(`<a:t>([^<]*)</a:t>`)
)

// stripLayoutLines drops lines that are bare page numbers or "Page N of M"
// footers, a best-effort cleanup of PDF layout artifacts.
func stripLayoutLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if pageNumRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// extractDrawingText scrapes <a:t> runs out of a slide's drawing XML.
func extractDrawingText(xmlContent string) string {
	var text strings.Builder
	for _, m := range drawTextRe.FindAllStringSubmatch(xmlContent, -1) {
		text.WriteString(m[1])
		text.WriteString(" ")
	}
	return text.String()
}
