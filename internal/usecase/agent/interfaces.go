package agent

import (
	"context"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/usecase/analysis"
	"github.com/futig/workspace-agent/internal/usecase/extractor"
	"github.com/futig/workspace-agent/internal/usecase/retrieval"
)

type Retriever interface {
	Query(ctx context.Context, q retrieval.Query) ([]entity.Chunk, error)
	PersistRecord(ctx context.Context, record entity.Record) error
}

type NameEmailExtractor interface {
	Extract(ctx context.Context, chunks []entity.Chunk) (extractor.NameEmail, error)
}

type OfferDrafter interface {
	Draft(ctx context.Context, facts entity.CandidateFacts, chunks []entity.Chunk) (string, error)
}

type Answerer interface {
	Answer(ctx context.Context, question string, chunks []entity.Chunk) (string, error)
}

type FileLocator interface {
	Choose(ctx context.Context, message, ref string) (string, error)
	Resolve(ctx context.Context, ref string) (string, error)
}

type DataAnalyzer interface {
	Analyze(ctx context.Context, path, title string) (*analysis.Result, error)
}
