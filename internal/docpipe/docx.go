package docpipe

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// extractDocx reads paragraph text from word/document.xml. The first
// paragraph styled as a heading or title becomes the document title.
func extractDocx(path string) (string, string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", "", fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", "", fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var (
		title       string
		paragraphs  []string
		current     strings.Builder
		inParagraph bool
		style       string
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				current.Reset()
				style = ""
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			case t.Name.Local == "tab" && inParagraph:
				current.WriteByte(' ')
			}

		case xml.CharData:
			if inParagraph {
				current.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local != "p" || !inParagraph {
				continue
			}
			inParagraph = false
			text := strings.TrimSpace(current.String())
			if text == "" {
				continue
			}
			if title == "" && isHeadingStyle(style) {
				title = text
			}
			paragraphs = append(paragraphs, text)
		}
	}

	return title, strings.Join(paragraphs, "\n\n"), nil
}

func isHeadingStyle(style string) bool {
	lower := strings.ToLower(style)
	return lower == "title" || strings.HasPrefix(lower, "heading")
}
