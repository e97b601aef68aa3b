package entity

import "time"

type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeTable ChunkType = "table"
	ChunkTypeCSV   ChunkType = "csv"
)

// ChunkMeta carries the structural origin of a chunk and, once persisted,
// the upload it came from.
type ChunkMeta struct {
	Page       *int  `json:"page,omitempty"`
	SpansPages *bool `json:"spansPages,omitempty"`
	StartRow   *int  `json:"startRow,omitempty"`
	EndRow     *int  `json:"endRow,omitempty"`

	ResumeFileName   string `json:"resumeFileName,omitempty"`
	UploadedFileName string `json:"uploadedFileName,omitempty"`
	FileType         string `json:"fileType,omitempty"`
	UploadedAt       string `json:"uploadedAt,omitempty"`
}

// Chunk is a bounded span of source text. Embedding is empty until the
// upload pipeline has processed it.
type Chunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Type      ChunkType `json:"type"`
	Meta      ChunkMeta `json:"meta"`
	Embedding []float32 `json:"-"`
	Score     float64   `json:"score,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExtractedDocument is the normalized form of an upload: ordered page texts
// for paginated documents, ordered row records for tabular ones, or plain text.
type ExtractedDocument struct {
	Pages   []string
	Columns []string
	Rows    []map[string]string
	Text    string
}

const RecordTypeEmailDraft = "email_draft"

// Record is a durable artifact written after a successful run.
type Record struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Text      string            `json:"text"`
	Meta      map[string]string `json:"meta"`
	CreatedAt time.Time         `json:"createdAt"`
}
