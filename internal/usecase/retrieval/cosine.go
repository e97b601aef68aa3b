package retrieval

import (
	"cmp"
	"math"
	"slices"

	"github.com/futig/workspace-agent/internal/entity"
)

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with a zero norm score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankByCosine scores every chunk against query and returns the best limit.
func rankByCosine(chunks []entity.Chunk, query []float32, limit int) []entity.Chunk {
	scored := make([]entity.Chunk, len(chunks))
	for i, c := range chunks {
		c.Score = Cosine(query, c.Embedding)
		scored[i] = c
	}

	slices.SortStableFunc(scored, func(a, b entity.Chunk) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
