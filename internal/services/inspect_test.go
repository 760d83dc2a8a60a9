package services

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInspectDocumentText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("Infrastructure cost: $100"), 0o600); err != nil {
		t.Fatal(err)
	}

	info, err := inspectDocument(path)
	if err != nil {
		t.Fatalf("inspectDocument: %v", err)
	}
	if info.MIMEType != "text/plain" {
		t.Errorf("mime type = %q", info.MIMEType)
	}
	if info.PageCount != 0 {
		t.Errorf("page count = %d", info.PageCount)
	}
}

func TestInspectDocumentMissingFile(t *testing.T) {
	if _, err := inspectDocument(filepath.Join(t.TempDir(), "absent.pdf")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestInspectDocumentPDF(t *testing.T) {
	info, err := inspectDocument(filepath.Join("testdata", "one-page.pdf"))
	if err != nil {
		t.Fatalf("inspectDocument: %v", err)
	}
	if info.MIMEType != "application/pdf" {
		t.Errorf("mime type = %q", info.MIMEType)
	}
	if info.PageCount != 1 {
		t.Errorf("page count = %d, want 1", info.PageCount)
	}
}

func TestInspectDocumentCorruptPDF(t *testing.T) {
	info, err := inspectDocument(filepath.Join("testdata", "corrupt.pdf"))
	if err != nil {
		t.Fatalf("a PDF that cannot be parsed should not fail inspection: %v", err)
	}
	if info.MIMEType != "application/pdf" {
		t.Errorf("mime type = %q", info.MIMEType)
	}
	if info.PageCount != 0 {
		t.Errorf("page count = %d, want 0", info.PageCount)
	}
}
