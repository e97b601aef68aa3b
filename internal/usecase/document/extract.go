package document

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/ledongthuc/pdf"
)

// ExtractPDF returns the non-empty page texts of the PDF at path.
func ExtractPDF(path string) (entity.ExtractedDocument, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return entity.ExtractedDocument{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var doc entity.ExtractedDocument
	var all strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return entity.ExtractedDocument{}, fmt.Errorf("read pdf page %d: %w", i, err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		doc.Pages = append(doc.Pages, text)
		all.WriteString(text)
		all.WriteString("\n\n")
	}

	doc.Text = strings.TrimSpace(all.String())
	return doc, nil
}

// ExtractCSVFile parses the CSV at path.
func ExtractCSVFile(path string) (entity.ExtractedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.ExtractedDocument{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	return ExtractCSV(f)
}

// ExtractCSV reads a CSV with a header row into row records. Cells are
// trimmed; short rows leave the missing columns empty.
func ExtractCSV(r io.Reader) (entity.ExtractedDocument, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return entity.ExtractedDocument{}, entity.ErrCSVUnreadable
	}
	if err != nil {
		return entity.ExtractedDocument{}, fmt.Errorf("%w: %w", entity.ErrCSVUnreadable, err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	doc := entity.ExtractedDocument{Columns: columns}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return entity.ExtractedDocument{}, fmt.Errorf("%w: %w", entity.ErrCSVUnreadable, err)
		}

		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		doc.Rows = append(doc.Rows, row)
	}

	return doc, nil
}
