// Package lexical keeps an in-memory Bleve index of the corpus nodes. It
// serves keyword search when a question shares no vocabulary with the
// embedding model.
package lexical

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"

	"docqa/internal/domain"
)

type document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Index is a Bleve keyword index over nodes.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	nodes map[string]domain.Node
}

// New creates an empty in-memory index.
func New() (*Index, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// French analyzer: strips elided articles (l', d', qu'), drops French
	// stopwords and applies the light stemmer.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = fr.AnalyzerName
	docMapping.AddFieldMappingsAt("content", text)
	docMapping.AddFieldMappingsAt("title", text)
	im.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &Index{index: idx, nodes: make(map[string]domain.Node)}, nil
}

// Add indexes nodes in one batch. Existing nodes with the same ID are replaced.
func (x *Index) Add(ctx context.Context, nodes []domain.Node) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	batch := x.index.NewBatch()
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(n.ID, document{Title: n.Title, Content: n.Text}); err != nil {
			return fmt.Errorf("failed to index node %s: %w", n.ID, err)
		}
		x.nodes[n.ID] = n
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Search runs a match query over title and content and returns up to limit
// candidates by descending Bleve score.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]domain.Candidate, 0, len(res.Hits))
	for _, hit := range res.Hits {
		n, ok := x.nodes[hit.ID]
		if !ok {
			continue
		}
		out = append(out, domain.Candidate{Node: n, Score: hit.Score})
	}
	return out, nil
}

// Len returns the number of indexed nodes.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.nodes)
}

// Reset drops every indexed node.
func (x *Index) Reset() error {
	fresh, err := New()
	if err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	old := x.index
	x.index = fresh.index
	x.nodes = fresh.nodes
	return old.Close()
}

// Close releases the Bleve index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}
