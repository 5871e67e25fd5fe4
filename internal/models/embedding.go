package models

// StoredFile is an uploaded file persisted to the uploads area
type StoredFile struct {
	Filename string
	Path     string
	Data     []byte
	Format   Format
}

// Upload is a file received from a client, before it is persisted
type Upload struct {
	Filename string
	Data     []byte
}

// TextBlock is one unit of extracted text with its source filename
type TextBlock struct {
	Content string
	Source  string
}

// Chunk represents a bounded segment of a text block, ID is set once stored
type Chunk struct {
	ID      string
	Content string
	Source  string
	Index   int
}

// IngestionResult summarises one upload batch
type IngestionResult struct {
	OK        bool     `json:"ok"`
	Processed int      `json:"processed"`
	Failed    []string `json:"failed"`
	Chunks    int      `json:"chunks"`
}

// AnswerResult is the grounded answer with the documents it was built from
type AnswerResult struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// IndexedChunk is a chunk as persisted by a vector engine
type IndexedChunk struct {
	ID         string
	Content    string
	Source     string
	Embedding  []float32
	Similarity float32
}
