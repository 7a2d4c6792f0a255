package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadResume(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "cv.txt")
	if err := os.WriteFile(txt, []byte("Jane Doe"), 0o644); err != nil {
		t.Fatal(err)
	}
	pdf := filepath.Join(dir, "cv.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	resume, mimeType, err := loadResume(txt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resume != "Jane Doe" || mimeType != "text/plain" {
		t.Errorf("unexpected text resume %q (%s)", resume, mimeType)
	}

	resume, mimeType, err = loadResume(pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mimeType != "application/pdf" || !strings.HasPrefix(resume, "data:application/pdf;base64,JVBER") {
		t.Errorf("unexpected pdf resume %q (%s)", resume, mimeType)
	}

	if resume, mimeType, err := loadResume(""); err != nil || resume != "" || mimeType != "" {
		t.Errorf("empty path should yield no resume, got %q %q %v", resume, mimeType, err)
	}

	if _, _, err := loadResume(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}
