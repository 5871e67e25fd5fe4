package models

import "errors"

var (
	ErrExtraction         = errors.New("extraction failed")
	ErrOCRUnavailable     = errors.New("ocr engine unavailable")
	ErrIngestion          = errors.New("ingestion failed")
	ErrInvalidQuestion    = errors.New("please enter a question")
	ErrNoDocuments        = errors.New("no documents uploaded yet, please upload some files first")
	ErrEmptyKnowledgeBase = errors.New("knowledge base is empty, please upload some documents first")
	ErrGeneration         = errors.New("answer generation failed")
	ErrStore              = errors.New("vector store failure")
)

// Error codes reported to clients
const (
	CodeEmptyQuestion = "EMPTY_QUESTION"
	CodeNoDocuments   = "NO_DOCUMENTS"
	CodeEmptyDatabase = "EMPTY_DATABASE"
	CodeServerError   = "SERVER_ERROR"
)

// ErrorCode maps an error returned by the answer pipeline to a client code.
// Nil maps to the empty string.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidQuestion):
		return CodeEmptyQuestion
	case errors.Is(err, ErrNoDocuments):
		return CodeNoDocuments
	case errors.Is(err, ErrEmptyKnowledgeBase):
		return CodeEmptyDatabase
	default:
		return CodeServerError
	}
}
