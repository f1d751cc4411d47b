package vectorstore

import (
	"context"

	"docqa/internal/domain"
)

// Storage persists node vectors and supports similarity search.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, nodes []domain.Node, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.Candidate, error)
	// Nodes returns every stored node in insertion order.
	Nodes(ctx context.Context) ([]domain.Node, error)
	Clear(ctx context.Context) error
	Close() error
}

// Replacer is implemented by stores that can reset a collection and fill it
// atomically. A failed Replace leaves the previous collection in place.
type Replacer interface {
	Replace(ctx context.Context, dimension int, nodes []domain.Node, vectors [][]float64) error
}
