package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"docchat/internal/domain"
)

// PDFLoader extracts plain text from PDF files.
type PDFLoader struct{}

// NewPDFLoader returns a loader for PDF documents.
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Load extracts the text of every page, one page per line group, and returns
// it with the page count. Pages that fail text extraction are skipped rather
// than failing the whole document.
func (l *PDFLoader) Load(ctx context.Context, path string) (string, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, &domain.LoadError{Path: path, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", 0, &domain.LoadError{Path: path, Err: err}
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", 0, &domain.LoadError{Path: path, Err: fmt.Errorf("not a readable PDF: %w", err)}
	}

	var text strings.Builder
	pageCount := reader.NumPage()

	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		text.WriteString(pageText)
		text.WriteString("\n")
	}

	return text.String(), pageCount, nil
}
