package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// BatchEmbedder is implemented by embedders that can embed several texts
// in one request.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// EmbedAll embeds texts in order, using batches of batchSize when e supports it.
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	if be, ok := e.(BatchEmbedder); ok && batchSize > 1 {
		for start := 0; start < len(texts); start += batchSize {
			end := min(start+batchSize, len(texts))
			batch, err := be.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				return nil, err
			}
			vectors = append(vectors, batch...)
		}
		return vectors, nil
	}
	for _, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}
