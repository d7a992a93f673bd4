package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a supported document type, named by its file extension.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatTXT  Format = "txt"
	FormatMD   Format = "md"
	FormatXLSM Format = "xlsm"
)

// Paginated reports whether extraction emits one progress event per page.
func (f Format) Paginated() bool {
	return f == FormatPDF
}

// FormatFromFilename returns the lower-cased extension of name without the dot.
func FormatFromFilename(name string) Format {
	return Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."))
}

// Document is an uploaded file held in memory until extraction finishes.
type Document struct {
	Name   string
	Format Format
	Data   []byte
}

func (d Document) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", d.Name, d.Format, len(d.Data))
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content string
	ChunkID int
}

type PromptResponse struct {
	Query   string
	Source  string
	Content string
	Sources []string
}
