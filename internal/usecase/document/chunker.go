package document

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/futig/workspace-agent/internal/entity"
)

const (
	maxChunkSize = 1200
	csvRowGroup  = 20
	// A page with more table-like lines than this is kept whole.
	tableLineThreshold = 2
)

var (
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
	columnGap      = regexp.MustCompile(`\s{2,}`)
)

// Chunk splits an extracted document into bounded, context-preserving
// chunks. Rows are grouped, tables are kept whole and paragraphs are never
// split; a paragraph larger than the bound becomes a chunk of its own.
func Chunk(doc entity.ExtractedDocument) []entity.Chunk {
	switch {
	case doc.Rows != nil:
		return chunkRows(doc.Rows)
	case doc.Pages != nil:
		return chunkPages(doc.Pages)
	default:
		return chunkText(doc.Text)
	}
}

func chunkRows(rows []map[string]string) []entity.Chunk {
	chunks := make([]entity.Chunk, 0, (len(rows)+csvRowGroup-1)/csvRowGroup)
	for start := 0; start < len(rows); start += csvRowGroup {
		end := min(start+csvRowGroup, len(rows))
		data, err := json.Marshal(rows[start:end])
		if err != nil {
			continue
		}

		chunks = append(chunks, entity.Chunk{
			Text: string(data),
			Type: entity.ChunkTypeCSV,
			Meta: entity.ChunkMeta{StartRow: ptr(start), EndRow: ptr(end)},
		})
	}
	return chunks
}

// paragraphBuffer accumulates paragraphs until the size bound is reached.
type paragraphBuffer struct {
	text   strings.Builder
	page   int
	chunks []entity.Chunk
	paged  bool
}

func (b *paragraphBuffer) add(para string, page int) {
	if b.text.Len() > 0 && b.text.Len()+len(para) >= maxChunkSize {
		b.flush()
	}
	if b.text.Len() == 0 {
		b.page = page
	}
	b.text.WriteString(para)
	b.text.WriteString("\n\n")
}

func (b *paragraphBuffer) flush() {
	text := strings.TrimSpace(b.text.String())
	b.text.Reset()
	if text == "" {
		return
	}

	c := entity.Chunk{Text: text, Type: entity.ChunkTypeText}
	if b.paged {
		c.Meta.Page = ptr(b.page)
	}
	b.chunks = append(b.chunks, c)
}

func chunkPages(pages []string) []entity.Chunk {
	buf := &paragraphBuffer{paged: true}

	var table strings.Builder
	tableStart := -1

	flushTable := func(spans bool) {
		text := strings.TrimSpace(table.String())
		table.Reset()
		if text != "" {
			buf.chunks = append(buf.chunks, entity.Chunk{
				Text: text,
				Type: entity.ChunkTypeTable,
				Meta: entity.ChunkMeta{Page: ptr(tableStart), SpansPages: ptr(spans)},
			})
		}
		tableStart = -1
	}

	for i, page := range pages {
		if looksLikeTable(page) {
			if tableStart < 0 {
				buf.flush()
				tableStart = i
			}
			table.WriteString(page)
			table.WriteString("\n")
			continue
		}

		if tableStart >= 0 {
			flushTable(i-1 != tableStart)
		}

		for _, para := range paragraphSplit.Split(page, -1) {
			if strings.TrimSpace(para) == "" {
				continue
			}
			buf.add(para, i)
		}
	}

	if tableStart >= 0 {
		flushTable(len(pages)-1 != tableStart)
	}
	buf.flush()

	return buf.chunks
}

func chunkText(text string) []entity.Chunk {
	buf := &paragraphBuffer{}
	for _, para := range paragraphSplit.Split(text, -1) {
		if strings.TrimSpace(para) == "" {
			continue
		}
		buf.add(para, 0)
	}
	buf.flush()
	return buf.chunks
}

func looksLikeTable(page string) bool {
	count := 0
	for _, line := range strings.Split(page, "\n") {
		if strings.Contains(line, "|") || len(columnGap.Split(line, -1)) > 2 {
			count++
		}
	}
	return count > tableLineThreshold
}

func ptr[T any](v T) *T {
	return &v
}
