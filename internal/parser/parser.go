package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"ragbot/internal/models"
)

// OCREngine recognises text lines in an encoded image. Implementations return
// models.ErrOCRUnavailable when the engine cannot run at all.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) ([]string, error)
}

// RasterDocument is an opened PDF that can render its pages to images
type RasterDocument interface {
	NumPage() int
	RenderPage(page, dpi int) ([]byte, error)
	Close() error
}

type Rasterizer interface {
	Open(data []byte) (RasterDocument, error)
}

// TextLayerReader returns the native text of every page of a PDF, in order
type TextLayerReader interface {
	ReadPages(data []byte) ([]string, error)
}

const (
	defaultLowTextThreshold = 50  // runes across all pages
	defaultOCRDPI           = 300
)

// Extractor turns stored files into text blocks. It never returns an error:
// every failure is reported through the Extraction status.
type Extractor struct {
	ocr              OCREngine
	rasterizer       Rasterizer
	textLayer        TextLayerReader
	lowTextThreshold int
	dpi              int
}

type Option func(*Extractor)

func WithOCR(engine OCREngine) Option {
	return func(e *Extractor) { e.ocr = engine }
}

func WithRasterizer(r Rasterizer) Option {
	return func(e *Extractor) { e.rasterizer = r }
}

func WithTextLayer(r TextLayerReader) Option {
	return func(e *Extractor) { e.textLayer = r }
}

// WithLowTextThreshold sets the minimum number of native text characters a
// PDF needs before OCR is skipped
func WithLowTextThreshold(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.lowTextThreshold = n
		}
	}
}

func WithDPI(dpi int) Option {
	return func(e *Extractor) {
		if dpi > 0 {
			e.dpi = dpi
		}
	}
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		textLayer:        PDFTextLayer{},
		lowTextThreshold: defaultLowTextThreshold,
		dpi:              defaultOCRDPI,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the strategy matching the file's format.
func (e *Extractor) Extract(ctx context.Context, file models.StoredFile) (ex models.Extraction) {
	defer func() {
		if r := recover(); r != nil {
			ex = models.Extraction{
				Strategy: ex.Strategy,
				Status:   models.StatusUnreadable,
				Err:      fmt.Errorf("%w: panic while reading %s: %v", models.ErrExtraction, file.Filename, r),
			}
			log.Error().Str("file", file.Filename).Interface("panic", r).Msg("Extraction panicked")
		}
	}()

	switch file.Format {
	case models.FormatSpreadsheet:
		ex = e.extractSpreadsheet(file)
	case models.FormatImage:
		ex = e.extractImage(ctx, file)
	case models.FormatPDF:
		ex = e.extractPDF(ctx, file)
	case models.FormatWord:
		ex = e.extractWord(file)
	case models.FormatMarkdown:
		ex = e.extractMarkdown(file)
	case models.FormatText:
		ex = singleBlock(file.Filename, models.StrategyText, strings.ToValidUTF8(string(file.Data), ""))
	case models.FormatUnsupported:
		ex = models.Extraction{Strategy: models.StrategyUnsupported, Status: models.StatusUnsupported}
	default:
		ex = models.Extraction{Strategy: models.StrategyUnsupported, Status: models.StatusUnsupported}
	}

	evt := log.Info()
	if ex.Status != models.StatusOK {
		evt = log.Warn().Err(ex.Err)
	}
	evt.Str("file", file.Filename).
		Str("strategy", ex.Strategy.String()).
		Str("status", ex.Status.String()).
		Int("blocks", len(ex.Blocks)).
		Msg("Extracted document")
	return ex
}

func (e *Extractor) extractImage(ctx context.Context, file models.StoredFile) models.Extraction {
	if e.ocr == nil {
		return models.Extraction{Strategy: models.StrategyImage, Status: models.StatusOCRUnavailable}
	}
	lines, err := e.ocr.Recognize(ctx, file.Data)
	if err != nil {
		return ocrFailure(models.StrategyImage, file.Filename, err)
	}
	return singleBlock(file.Filename, models.StrategyImage, joinLines(lines))
}

// extractPDF accepts the native text layer when it holds at least
// lowTextThreshold characters, otherwise every page is rasterized and OCR'd.
func (e *Extractor) extractPDF(ctx context.Context, file models.StoredFile) models.Extraction {
	pages, err := e.textLayer.ReadPages(file.Data)
	if err != nil {
		log.Warn().Err(err).Str("file", file.Filename).Msg("Text layer unreadable")
	}

	total := 0
	var blocks []models.TextBlock
	for _, page := range pages {
		trimmed := strings.TrimSpace(page)
		total += utf8.RuneCountInString(trimmed)
		if trimmed != "" {
			blocks = append(blocks, models.TextBlock{Content: page, Source: file.Filename})
		}
	}

	if err == nil && total >= e.lowTextThreshold {
		return models.Extraction{Blocks: blocks, Strategy: models.StrategyTextPDF, Status: models.StatusOK}
	}

	log.Warn().Str("file", file.Filename).Int("chars", total).Msg("Low text detected, rasterizing PDF for OCR")
	return e.ocrPDF(ctx, file)
}

func (e *Extractor) ocrPDF(ctx context.Context, file models.StoredFile) models.Extraction {
	if e.ocr == nil || e.rasterizer == nil {
		return models.Extraction{Strategy: models.StrategyScannedPDF, Status: models.StatusOCRUnavailable}
	}

	doc, err := e.rasterizer.Open(file.Data)
	if err != nil {
		return models.Extraction{
			Strategy: models.StrategyScannedPDF,
			Status:   models.StatusUnreadable,
			Err:      fmt.Errorf("%w: failed to open %s for rasterizing: %v", models.ErrExtraction, file.Filename, err),
		}
	}
	defer doc.Close()

	var text strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		img, err := doc.RenderPage(page, e.dpi)
		if err != nil {
			log.Warn().Err(err).Str("file", file.Filename).Int("page", page+1).Msg("Failed to render page")
			continue
		}
		lines, err := e.ocr.Recognize(ctx, img)
		if errors.Is(err, models.ErrOCRUnavailable) {
			return ocrFailure(models.StrategyScannedPDF, file.Filename, err)
		}
		if err != nil {
			log.Warn().Err(err).Str("file", file.Filename).Int("page", page+1).Msg("OCR failed")
			continue
		}
		pageText := joinLines(lines)
		if pageText == "" {
			log.Debug().Str("file", file.Filename).Int("page", page+1).Msg("No text found")
			continue
		}
		log.Debug().Str("file", file.Filename).Int("page", page+1).Msg("OCR success")
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	return singleBlock(file.Filename, models.StrategyScannedPDF, text.String())
}

func ocrFailure(strategy models.Strategy, filename string, err error) models.Extraction {
	status := models.StatusUnreadable
	if errors.Is(err, models.ErrOCRUnavailable) {
		status = models.StatusOCRUnavailable
	}
	return models.Extraction{
		Strategy: strategy,
		Status:   status,
		Err:      fmt.Errorf("%w: ocr on %s: %w", models.ErrExtraction, filename, err),
	}
}

// singleBlock wraps content in one block, or reports NoText when it is blank
func singleBlock(source string, strategy models.Strategy, content string) models.Extraction {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Extraction{Strategy: strategy, Status: models.StatusNoText}
	}
	return models.Extraction{
		Blocks:   []models.TextBlock{{Content: content, Source: source}},
		Strategy: strategy,
		Status:   models.StatusOK,
	}
}

func joinLines(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
