package models

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput = errors.New("no usable text to index")
	ErrEmptyQuery = errors.New("query is empty")
	ErrNoIndex    = errors.New("no document has been indexed")
)

type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported file format: file has no extension"
	}
	return fmt.Sprintf("unsupported file format: .%s", e.Ext)
}

// ExtractionError wraps a parser failure for one document format.
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// UpstreamError wraps failures of the embedding, search and LLM collaborators.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Op: op, Err: err}
}

// UserMessage renders err as a sentence fit for the browser.
func UserMessage(err error) string {
	var (
		unsupported *UnsupportedFormatError
		extraction  *ExtractionError
		upstream    *UpstreamError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoIndex):
		return "Upload a file first"
	case errors.Is(err, ErrEmptyQuery):
		return "Query cannot be empty"
	case errors.Is(err, ErrEmptyInput):
		return "Could not extract text from file"
	case errors.As(err, &unsupported):
		if unsupported.Ext == "" {
			return "Unsupported file type"
		}
		return fmt.Sprintf("Unsupported file type: .%s", unsupported.Ext)
	case errors.As(err, &extraction):
		return fmt.Sprintf("Could not read %s file: %v", extraction.Format, extraction.Err)
	case errors.As(err, &upstream):
		return fmt.Sprintf("The %s service failed: %v", upstream.Op, upstream.Err)
	default:
		return err.Error()
	}
}
