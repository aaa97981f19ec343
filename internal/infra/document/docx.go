package document

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrLegacyDoc is returned for binary Word 97-2003 files, which are not
// zip containers.
var ErrLegacyDoc = errors.New("legacy .doc format is not supported, convert to .docx")

const maxDocumentXML = 64 << 20

// DocxReader reads the raw text of an Office Open XML word document.
type DocxReader struct{}

func NewDocxReader() *DocxReader { return &DocxReader{} }

func (DocxReader) ReadDocument(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		if strings.EqualFold(filepath.Ext(path), ".doc") {
			return "", ErrLegacyDoc
		}
		return "", fmt.Errorf("open docx container: %w", err)
	}
	defer zr.Close()

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			part = f
			break
		}
	}
	if part == nil {
		return "", errors.New("word/document.xml not found")
	}
	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("open document part: %w", err)
	}
	defer rc.Close()

	return extractWordText(io.LimitReader(rc, maxDocumentXML))
}

// extractWordText collects <w:t> runs, turning paragraphs and breaks into
// newlines and <w:tab/> into tabs.
func extractWordText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
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
			return "", fmt.Errorf("decode document xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}
