// Package ocr provides the tesseract OCR engine used by the parser for images
// and scanned PDFs.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"

	"ragbot/internal/models"
	"ragbot/internal/parser"
)

// Tesseract recognises text with a single gosseract client. The client is not
// safe for concurrent use so calls are serialised.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract starts the engine for languages. gosseract only loads
// tesseract and its language data on the first recognition, so a blank image
// is recognised here; any failure is reported as models.ErrOCRUnavailable.
func NewTesseract(languages ...string) (*Tesseract, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: failed to set ocr languages: %w", models.ErrOCRUnavailable, err)
		}
	}
	if err := warmUp(client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to start tesseract: %w", models.ErrOCRUnavailable, err)
	}
	log.Info().Str("version", gosseract.Version()).Strs("languages", languages).Msg("OCR engine initialized")
	return &Tesseract{client: client}, nil
}

func warmUp(client *gosseract.Client) error {
	img, err := blankPNG()
	if err != nil {
		return err
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return err
	}
	_, err = client.Text()
	return err
}

func blankPNG() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode blank image: %w", err)
	}
	return buf.Bytes(), nil
}

// Recognize returns the recognised text lines in reading order.
func (t *Tesseract) Recognize(ctx context.Context, img []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil, models.ErrOCRUnavailable
	}

	if err := t.client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, classify(err)
	}

	lines := make([]string, 0, len(boxes))
	for _, box := range boxes {
		if line := strings.TrimSpace(box.Word); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// classify marks engine startup failures as models.ErrOCRUnavailable so a
// scanned PDF is abandoned instead of skipping every page
func classify(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "TessBaseAPI") || strings.Contains(msg, "tessdata") {
		return fmt.Errorf("%w: %w", models.ErrOCRUnavailable, err)
	}
	return fmt.Errorf("failed to recognize text: %w", err)
}

func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

var _ parser.OCREngine = (*Tesseract)(nil)
