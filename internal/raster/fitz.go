// Package raster renders PDF pages to images for OCR.
package raster

import (
	"fmt"

	"github.com/gen2brain/go-fitz"

	"ragbot/internal/parser"
)

// Fitz rasterizes PDF pages with MuPDF
type Fitz struct{}

func (Fitz) Open(data []byte) (parser.RasterDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) NumPage() int {
	return d.doc.NumPage()
}

// RenderPage renders the zero-based page as PNG at dpi
func (d *fitzDocument) RenderPage(page, dpi int) ([]byte, error) {
	img, err := d.doc.ImagePNG(page, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}

var _ parser.Rasterizer = Fitz{}
