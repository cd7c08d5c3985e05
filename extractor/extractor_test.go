package extractor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildUnitsAssignsPageOrderIdentifiers(t *testing.T) {
	units := BuildUnits([]string{"Alpha", "Beta", "Gamma"})
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}

	for i, want := range []string{"id1", "id2", "id3"} {
		if units[i].ID != want {
			t.Fatalf("unit %d: expected id %q, got %q", i, want, units[i].ID)
		}
		if units[i].Page != i+1 {
			t.Fatalf("unit %d: expected page %d, got %d", i, i+1, units[i].Page)
		}
	}
	if units[1].Text != "Beta" {
		t.Fatalf("unexpected text for page 2: %q", units[1].Text)
	}
}

func TestBuildUnitsKeepsEmptyPages(t *testing.T) {
	units := BuildUnits([]string{"Alpha", "", "Gamma"})
	if len(units) != 3 {
		t.Fatalf("an unreadable page must not be omitted, got %d units", len(units))
	}
	if units[1].Text != "" {
		t.Fatalf("expected empty text for page 2, got %q", units[1].Text)
	}
	if units[2].ID != "id3" {
		t.Fatalf("page numbering must not shift around empty pages, got %q", units[2].ID)
	}
}

func TestBuildUnitsEmptyDocument(t *testing.T) {
	if units := BuildUnits(nil); len(units) != 0 {
		t.Fatalf("expected no units for an empty document, got %d", len(units))
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-pdf.pdf")
	if err := os.WriteFile(path, []byte("plain text, not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Extract(path, nil); err == nil {
		t.Fatal("expected error for an unparseable document")
	}
}

func TestExtractMissingFile(t *testing.T) {
	if _, err := Extract(filepath.Join(t.TempDir(), "missing.pdf"), nil); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
