package formatter

import (
	"bytes"
	"fmt"

	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(doc Document) ([]byte, error) {
	out := document.New()
	defer out.Close()

	titlePar := out.AddParagraph()
	titlePar.SetStyle("Heading1")
	titlePar.AddRun().AddText(title(doc))

	for _, p := range doc.Paragraphs {
		out.AddParagraph().AddRun().AddText(p)
	}

	var buf bytes.Buffer
	if err := out.Save(&buf); err != nil {
		return nil, fmt.Errorf("save docx: %w", err)
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
