package document

import "fmt"

// Document is one uploaded PDF. It is created on upload and discarded when
// the session is cleared or replaced by a new upload.
type Document struct {
	ID    string
	Path  string
	Pages int
}

// TextUnit is the extracted text of a single page together with its stable
// identifier. Identifiers are assigned by 1-based page order and are unique
// within a document.
type TextUnit struct {
	ID   string
	Page int
	Text string
}

// UnitID returns the identifier for a 1-based page number.
func UnitID(page int) string {
	return fmt.Sprintf("id%d", page)
}
