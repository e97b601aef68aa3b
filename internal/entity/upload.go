package entity

import "time"

// FileMapping associates a user-facing file name with its stored location.
type FileMapping struct {
	OriginalName   string    `json:"originalName"`
	StoredPath     string    `json:"storedPath"`
	StoredFileName string    `json:"storedFileName"`
	Timestamp      time.Time `json:"timestamp"`
}

type FileKind string

const (
	FileKindPDF FileKind = "pdf"
	FileKindCSV FileKind = "csv"
)

// UploadedFile describes a file accepted by the upload endpoint.
type UploadedFile struct {
	OriginalName   string
	StoredFileName string
	StoredPath     string
	ContentType    string
	Kind           FileKind
	Size           int64
}

type UploadResponse struct {
	Message      string `json:"message"`
	Chunks       int    `json:"chunks"`
	FilePath     string `json:"filePath"`
	FileName     string `json:"fileName"`
	OriginalName string `json:"originalName"`
	Processing   bool   `json:"processing"`
}

type SendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type ExportFormat string

const (
	FormatMarkdown ExportFormat = "md"
	FormatDOCX     ExportFormat = "docx"
	FormatPDF      ExportFormat = "pdf"
)

type ExportOfferRequest struct {
	Name string `json:"name"`
	HTML string `json:"html"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Answer string `json:"answer,omitempty"`
}
