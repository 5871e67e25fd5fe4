package raster

import (
	"bytes"
	"testing"

	"ragbot/internal/parser/parsertest"
)

func TestFitzRendersPages(t *testing.T) {
	doc, err := Fitz{}.Open(parsertest.OnePagePDF("Rasterized page"))
	if err != nil {
		t.Fatalf("failed to open pdf: %v", err)
	}
	defer doc.Close()

	if n := doc.NumPage(); n != 1 {
		t.Fatalf("expected 1 page, got %d", n)
	}
	img, err := doc.RenderPage(0, 72)
	if err != nil {
		t.Fatalf("failed to render page: %v", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG")) {
		t.Fatal("expected png output")
	}
	if _, err := doc.RenderPage(3, 72); err == nil {
		t.Fatal("expected error for page out of range")
	}
}

func TestFitzRejectsGarbage(t *testing.T) {
	if _, err := (Fitz{}).Open([]byte("definitely not a pdf")); err == nil {
		t.Fatal("expected error for invalid pdf")
	}
}
