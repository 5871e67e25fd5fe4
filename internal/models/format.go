package models

import (
	"path/filepath"
	"strings"
)

// Format is the file kind derived from the filename extension.
type Format int

const (
	FormatUnsupported Format = iota
	FormatSpreadsheet
	FormatImage
	FormatPDF
	FormatWord
	FormatMarkdown
	FormatText
)

var formatNames = map[Format]string{
	FormatUnsupported: "unsupported",
	FormatSpreadsheet: "spreadsheet",
	FormatImage:       "image",
	FormatPDF:         "pdf",
	FormatWord:        "word",
	FormatMarkdown:    "markdown",
	FormatText:        "text",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// DetectFormat infers the format from the extension of filename.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm", ".csv":
		return FormatSpreadsheet
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp":
		return FormatImage
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatWord
	case ".md", ".markdown":
		return FormatMarkdown
	case ".txt":
		return FormatText
	default:
		return FormatUnsupported
	}
}

// Strategy is the extraction strategy that was actually applied to a file.
// PDFs resolve to TextPDF or ScannedPDF once their text layer was measured.
type Strategy int

const (
	StrategyUnsupported Strategy = iota
	StrategySpreadsheet
	StrategyImage
	StrategyTextPDF
	StrategyScannedPDF
	StrategyWord
	StrategyMarkdown
	StrategyText
)

var strategyNames = map[Strategy]string{
	StrategyUnsupported: "unsupported",
	StrategySpreadsheet: "spreadsheet",
	StrategyImage:       "image",
	StrategyTextPDF:     "text-pdf",
	StrategyScannedPDF:  "scanned-pdf",
	StrategyWord:        "word",
	StrategyMarkdown:    "markdown",
	StrategyText:        "text",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// ExtractStatus tells apart the ways an extraction can end.
type ExtractStatus int

const (
	StatusOK ExtractStatus = iota
	StatusUnsupported
	StatusUnreadable
	StatusOCRUnavailable
	StatusNoText
)

var statusNames = map[ExtractStatus]string{
	StatusOK:             "ok",
	StatusUnsupported:    "unsupported format",
	StatusUnreadable:     "unreadable file",
	StatusOCRUnavailable: "ocr unavailable",
	StatusNoText:         "no text found",
}

func (s ExtractStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Extraction is the outcome of running the text extractor over one file
type Extraction struct {
	Blocks   []TextBlock
	Strategy Strategy
	Status   ExtractStatus
	Err      error
}

// IndexState describes whether the vector index holds anything to search.
type IndexState int

const (
	// IndexMissing means the collection was never created
	IndexMissing IndexState = iota
	// IndexEmpty means the collection exists but holds no chunks
	IndexEmpty
	IndexReady
)

func (s IndexState) String() string {
	switch s {
	case IndexMissing:
		return "missing"
	case IndexEmpty:
		return "empty"
	case IndexReady:
		return "ready"
	default:
		return "unknown"
	}
}
