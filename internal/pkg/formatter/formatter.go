package formatter

import (
	"fmt"

	"github.com/futig/workspace-agent/internal/entity"
)

const defaultTitle = "Offer Letter"

// Document is a titled sequence of plain-text paragraphs.
type Document struct {
	Title      string
	Paragraphs []string
}

type Formatter interface {
	Format(doc Document) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ExportFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownFormat, format)
	}
}

func title(doc Document) string {
	if doc.Title == "" {
		return defaultTitle
	}
	return doc.Title
}
