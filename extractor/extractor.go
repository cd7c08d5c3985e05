package extractor

import (
	"bytes"
	"fmt"
	"os"

	pdf "github.com/ledongthuc/pdf"

	"github.com/VijayarajParamasivam/PaperMind/document"
)

// ProgressFunc reports extraction progress. page is 1-based and total is the
// page count of the document.
type ProgressFunc func(page, total int)

// Extract reads a PDF file and returns one TextUnit per page, in page order,
// with identifiers id1..idN. A page whose text cannot be extracted yields an
// empty unit rather than failing the document; only an unparseable file is an
// error.
func Extract(path string, progress ProgressFunc) ([]document.TextUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf file: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	texts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		texts = append(texts, pageText(reader, i))
		if progress != nil {
			progress(i, total)
		}
	}

	return BuildUnits(texts), nil
}

func pageText(reader *pdf.Reader, page int) string {
	p := reader.Page(page)
	if p.V.IsNull() {
		return ""
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

// BuildUnits assigns stable 1-based identifiers to extracted page texts.
// Empty texts are preserved so page numbering stays intact.
func BuildUnits(pageTexts []string) []document.TextUnit {
	units := make([]document.TextUnit, len(pageTexts))
	for i, text := range pageTexts {
		page := i + 1
		units[i] = document.TextUnit{
			ID:   document.UnitID(page),
			Page: page,
			Text: text,
		}
	}
	return units
}
