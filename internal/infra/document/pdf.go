package document

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFReader extracts the text layer of a PDF. Scanned PDFs without a text
// layer come back empty.
type PDFReader struct{}

func NewPDFReader() *PDFReader { return &PDFReader{} }

func (PDFReader) ReadPDF(ctx context.Context, path string) (text string, pages int, err error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	// the parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("pdf reader: %w", err)
	}
	defer f.Close()

	pages = r.NumPage()
	plain, err := r.GetPlainText()
	if err != nil {
		return "", pages, fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", pages, fmt.Errorf("pdf read: %w", err)
	}
	return strings.TrimSpace(string(b)), pages, nil
}
