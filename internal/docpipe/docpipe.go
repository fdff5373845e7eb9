// Package docpipe turns uploaded files into plain text and splits that text
// into overlapping chunks for embedding.
//
// Supported formats:
//   - .txt, .text  plain text
//   - .md, .markdown  markdown, kept as-is
//   - .html, .htm  sanitized and converted to markdown
//   - .pdf  text operators of every page
//   - .docx  paragraphs of word/document.xml
package docpipe

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions with no extractor.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// DefaultMaxFileSize bounds the files Extract will open.
const DefaultMaxFileSize = 50 << 20

// Format identifies a document type.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatMD   Format = "md"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDocx Format = "docx"
)

// Document is the text content of one file.
type Document struct {
	Format Format
	Title  string
	Text   string
}

// DetectFormat maps a file extension, with or without the leading dot,
// to a Format.
func DetectFormat(ext string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "txt", "text":
		return FormatTXT, nil
	case "md", "markdown":
		return FormatMD, nil
	case "html", "htm":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDocx, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Extract reads the file at path as the format named by ext.
func Extract(path, ext string) (*Document, error) {
	format, err := DetectFormat(ext)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > DefaultMaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), DefaultMaxFileSize)
	}

	var title, text string
	switch format {
	case FormatTXT, FormatMD:
		text, err = extractText(path)
	case FormatHTML:
		title, text, err = extractHTML(path)
	case FormatPDF:
		title, text, err = extractPDF(path)
	case FormatDocx:
		title, text, err = extractDocx(path)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s (%s): %w", path, format, err)
	}

	return &Document{Format: format, Title: title, Text: strings.TrimSpace(text)}, nil
}

func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}
