package docpipe

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		ext  string
		want Format
	}{
		{"txt", FormatTXT},
		{".md", FormatMD},
		{"Markdown", FormatMD},
		{"HTM", FormatHTML},
		{"pdf", FormatPDF},
		{".docx", FormatDocx},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.ext)
		if err != nil {
			t.Errorf("DetectFormat(%q): %v", tt.ext, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}

	if _, err := DetectFormat("xlsx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractText(t *testing.T) {
	path := writeFile(t, "notes.txt", "  Channels connect goroutines.\n\n")
	doc, err := Extract(path, "txt")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if doc.Text != "Channels connect goroutines." {
		t.Errorf("text = %q", doc.Text)
	}
	if doc.Format != FormatTXT {
		t.Errorf("format = %q", doc.Format)
	}
}

func TestExtractHTML(t *testing.T) {
	path := writeFile(t, "page.html", `<!DOCTYPE html>
<html><head><title>Go Basics</title><script>alert("x")</script></head>
<body><h1>Goroutines</h1><p>Goroutines are lightweight threads.</p>
<p onclick="steal()">Use channels.</p></body></html>`)

	doc, err := Extract(path, "html")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if doc.Title != "Go Basics" {
		t.Errorf("title = %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "Goroutines are lightweight threads.") {
		t.Errorf("missing paragraph text: %q", doc.Text)
	}
	for _, bad := range []string{"alert", "steal", "<script"} {
		if strings.Contains(doc.Text, bad) {
			t.Errorf("text contains %q: %q", bad, doc.Text)
		}
	}
}

func TestExtractDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Concurrency</w:t></w:r></w:p>
<w:p><w:r><w:t>Select waits on </w:t></w:r><w:r><w:t>many channels.</w:t></w:r></w:p>
<w:p></w:p>
</w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	f.Close()

	doc, err := Extract(path, "docx")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if doc.Title != "Concurrency" {
		t.Errorf("title = %q", doc.Title)
	}
	want := "Concurrency\n\nSelect waits on many channels."
	if doc.Text != want {
		t.Errorf("text = %q, want %q", doc.Text, want)
	}
}

func TestExtractDocxMissingBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, _ := os.Create(path)
	zw := zip.NewWriter(f)
	zw.Create("other.xml")
	zw.Close()
	f.Close()

	if _, err := Extract(path, "docx"); err == nil {
		t.Fatal("expected error for docx without word/document.xml")
	}
}

func TestExtractUnsupported(t *testing.T) {
	path := writeFile(t, "sheet.xlsx", "data")
	_, err := Extract(path, "xlsx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractTextFromStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n72 712 Td\n(Hello\\040PDF) Tj\nT*\n[(Wor) -20 (ld)] TJ\nET\n")
	got := extractTextFromStream(stream)
	if got != "Hello PDF World" {
		t.Errorf("got %q, want %q", got, "Hello PDF World")
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`plain`, "plain"},
		{`a\(b\)`, "a(b)"},
		{`tab\there`, "tab\there"},
		{`\101BC`, "ABC"},
	}
	for _, tt := range tests {
		if got := decodePDFString([]byte(tt.raw)); got != tt.want {
			t.Errorf("decodePDFString(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
