// Package extract provides text extraction for uploaded documents.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedType is returned for file extensions that cannot be ingested.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrMalformed is returned when a document cannot be parsed.
	ErrMalformed = errors.New("malformed document")
)

// Extractor extracts plain text from uploaded document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// SupportedExtensions lists the extensions Extract accepts.
func SupportedExtensions() []string {
	return []string{".txt", ".pdf"}
}

// Supported reports whether filename has an extension Extract accepts.
func Supported(filename string) bool {
	ext := Ext(filename)
	for _, e := range SupportedExtensions() {
		if e == ext {
			return true
		}
	}
	return false
}

// Ext returns the lowercased extension of filename including the leading dot.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Extract returns the text of content, dispatching on the extension of filename.
// The result is whitespace-trimmed.
func (e *Extractor) Extract(filename string, content []byte) (string, error) {
	return e.ExtractBytes(content, Ext(filename))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(ext) {
	case ".txt":
		text, err = extractPlain(content)
	case ".pdf":
		text, err = extractPDF(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
