package query

import (
	"context"
	"fmt"

	"docqa/internal/domain"
)

// Searcher is the similarity search the retriever delegates to.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.Candidate, error)
}

// Retriever returns the topK candidates for a question, in the order the
// index reports them.
type Retriever struct {
	searcher Searcher
	topK     int
}

func NewRetriever(s Searcher, topK int) (*Retriever, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	return &Retriever{searcher: s, topK: topK}, nil
}

func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.Candidate, error) {
	res, err := r.searcher.Search(ctx, question, r.topK)
	if err != nil {
		return nil, &StageError{Stage: StageRetrieval, Err: err}
	}
	return res, nil
}
