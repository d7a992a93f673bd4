package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"document-rag/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ProgressFunc receives an overall percentage and a short status message.
type ProgressFunc func(percent int, message string)

// Span is the slice of the 0-100 progress scale reserved for extraction.
type Span struct {
	Start int
	End   int
}

// DefaultSpan reserves roughly the first third of an upload for extraction.
var DefaultSpan = Span{Start: 5, End: 35}

// at scales step out of total into the span.
func (s Span) at(step, total int) int {
	if total <= 0 {
		return s.End
	}
	return s.Start + (s.End-s.Start)*step/total
}

type Extractor struct {
	formats map[models.Format]struct{}
	span    Span
}

func NewExtractor(formats []string, span Span) *Extractor {
	e := &Extractor{
		formats: make(map[models.Format]struct{}, len(formats)),
		span:    span,
	}
	for _, f := range formats {
		e.formats[models.Format(strings.ToLower(f))] = struct{}{}
	}
	return e
}

// Check fails with UnsupportedFormatError when doc's format is not accepted.
func (e *Extractor) Check(doc models.Document) error {
	if _, ok := e.formats[doc.Format]; !ok {
		return &models.UnsupportedFormatError{Ext: string(doc.Format)}
	}
	return nil
}

// Extract returns the plain text of doc. Progress is reported inside the
// extractor's span; the last report is always the span's end.
func (e *Extractor) Extract(doc models.Document, report ProgressFunc) (content string, err error) {
	if err := e.Check(doc); err != nil {
		return "", err
	}
	if report == nil {
		report = func(int, string) {}
	}

	// pdf and zip readers panic on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("file", doc.Name).Msg("Parser panicked")
			err = &models.ExtractionError{Format: doc.Format, Err: fmt.Errorf("malformed document: %v", r)}
		}
	}()

	if doc.Format.Paginated() {
		content, err = e.extractPDF(doc.Data, report)
	} else {
		content, err = e.extractFlat(doc, report)
	}
	if err != nil {
		return "", &models.ExtractionError{Format: doc.Format, Err: err}
	}
	return strings.TrimSpace(content), nil
}

func (e *Extractor) extractPDF(data []byte, report ProgressFunc) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	numPages := reader.NumPage()
	report(e.span.Start, fmt.Sprintf("Extracting page 0/%d", numPages))

	var content strings.Builder
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if !page.V.IsNull() {
			pageText, err := page.GetPlainText(nil)
			if err != nil {
				return "", fmt.Errorf("page %d: %w", i, err)
			}
			if pageText != "" {
				content.WriteString(pageText)
				content.WriteString("\n")
			}
		}
		report(e.span.at(i, numPages), fmt.Sprintf("Extracting page %d/%d", i, numPages))
	}
	if numPages == 0 {
		report(e.span.End, "Extracting page 0/0")
	}
	return content.String(), nil
}

// extractFlat handles formats without pages: start, parsed and done events.
func (e *Extractor) extractFlat(doc models.Document, report ProgressFunc) (string, error) {
	report(e.span.Start, fmt.Sprintf("Extracting text from %s", doc.Format))

	var (
		content string
		err     error
	)
	switch doc.Format {
	case models.FormatDOCX:
		content, err = parseDOCX(doc.Data)
	case models.FormatXLSX:
		content, err = parseXLSX(doc.Data)
	case models.FormatXLSM:
		content, err = parseXLSM(doc.Data)
	case models.FormatMD:
		content, err = parseMarkdown(doc.Data)
	case models.FormatTXT:
		content = string(doc.Data)
	default:
		return "", &models.UnsupportedFormatError{Ext: string(doc.Format)}
	}
	if err != nil {
		return "", err
	}

	report(e.span.at(1, 2), fmt.Sprintf("Extracting: parsed %s", doc.Format))
	report(e.span.End, "Extraction done")
	return content, nil
}

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	return paragraphsFromXML(r.Editable().GetContent())
}

// paragraphsFromXML turns WordprocessingML into one line per paragraph.
func paragraphsFromXML(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var (
		out    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteString("\t")
			case "br":
				out.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return out.String(), nil
}

func parseXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}

	var sheets [][][]string
	var names []string
	for _, sheet := range f.Sheets {
		var rows [][]string
		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			var cells []string
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		names = append(names, sheet.Name)
		sheets = append(sheets, rows)
	}
	return renderSheets(names, sheets)
}

func parseXLSM(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sheets [][][]string
	var names []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		names = append(names, sheetName)
		sheets = append(sheets, rows)
	}
	return renderSheets(names, sheets)
}

// renderSheets lays every sheet out as an aligned text table.
func renderSheets(names []string, sheets [][][]string) (string, error) {
	var buf bytes.Buffer
	for i, rows := range sheets {
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "## Sheet: %s\n", names[i])
		w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
		for _, row := range rows {
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
		if err := w.Flush(); err != nil {
			return "", err
		}
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

// parseMarkdown keeps the text of a markdown document and drops its markup.
func parseMarkdown(src []byte) (string, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				out.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			out.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				out.WriteString("\n")
			}
		case *ast.String:
			out.Write(node.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				out.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
