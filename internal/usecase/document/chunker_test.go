package document

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paragraph(word string, size int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", size/(len(word)+1)))
}

func TestChunk_PlainTextKeepsParagraphsWhole(t *testing.T) {
	paras := []string{
		paragraph("alpha", 500),
		paragraph("beta", 500),
		paragraph("gamma", 500),
		paragraph("delta", 300),
	}

	chunks := Chunk(entity.ExtractedDocument{Text: strings.Join(paras, "\n\n")})

	require.Len(t, chunks, 2)
	for _, p := range paras {
		found := 0
		for _, c := range chunks {
			if strings.Contains(c.Text, p) {
				found++
			}
		}
		assert.Equal(t, 1, found, "paragraph must live in exactly one chunk")
	}
	for _, c := range chunks {
		assert.Equal(t, entity.ChunkTypeText, c.Type)
		assert.Nil(t, c.Meta.Page)
	}
}

func TestChunk_OversizedParagraphIsOwnChunk(t *testing.T) {
	big := paragraph("oversized", 3000)
	text := "short intro\n\n" + big + "\n\nshort outro"

	chunks := Chunk(entity.ExtractedDocument{Text: text})

	require.Len(t, chunks, 3)
	assert.Equal(t, "short intro", chunks[0].Text)
	assert.Equal(t, big, chunks[1].Text)
	assert.Equal(t, "short outro", chunks[2].Text)
}

func TestChunk_EmptyInput(t *testing.T) {
	assert.Empty(t, Chunk(entity.ExtractedDocument{Text: " \n\n  "}))
}

func TestChunk_CSVRowGroups(t *testing.T) {
	rows := make([]map[string]string, 45)
	for i := range rows {
		rows[i] = map[string]string{"month": "m", "sales": "1"}
	}

	chunks := Chunk(entity.ExtractedDocument{Rows: rows})

	require.Len(t, chunks, 3)
	tests := []struct{ start, end int }{{0, 20}, {20, 40}, {40, 45}}
	for i, tt := range tests {
		assert.Equal(t, entity.ChunkTypeCSV, chunks[i].Type)
		assert.Equal(t, tt.start, *chunks[i].Meta.StartRow)
		assert.Equal(t, tt.end, *chunks[i].Meta.EndRow)

		var decoded []map[string]string
		require.NoError(t, json.Unmarshal([]byte(chunks[i].Text), &decoded))
		assert.Len(t, decoded, tt.end-tt.start)
	}
}

func TestChunk_PagesWithTable(t *testing.T) {
	table := "Name | Role\nJane | Engineer\nJohn | Designer\nAmy | PM"
	pages := []string{
		"Jane Doe\n\nSenior engineer with Go experience.",
		table,
		"References available on request.",
	}

	chunks := Chunk(entity.ExtractedDocument{Pages: pages})

	require.Len(t, chunks, 3)

	assert.Equal(t, entity.ChunkTypeText, chunks[0].Type)
	assert.Equal(t, 0, *chunks[0].Meta.Page)
	assert.Contains(t, chunks[0].Text, "Senior engineer")

	assert.Equal(t, entity.ChunkTypeTable, chunks[1].Type)
	assert.Equal(t, table, chunks[1].Text)
	assert.Equal(t, 1, *chunks[1].Meta.Page)
	assert.False(t, *chunks[1].Meta.SpansPages)

	assert.Equal(t, entity.ChunkTypeText, chunks[2].Type)
	assert.Equal(t, 2, *chunks[2].Meta.Page)
}

func TestChunk_TrailingTableSpanningPages(t *testing.T) {
	table := "a | b\nc | d\ne | f\ng | h"

	chunks := Chunk(entity.ExtractedDocument{Pages: []string{"intro", table, table}})

	require.Len(t, chunks, 2)
	assert.Equal(t, entity.ChunkTypeTable, chunks[1].Type)
	assert.True(t, *chunks[1].Meta.SpansPages)
	assert.Equal(t, 1, *chunks[1].Meta.Page)
}
