package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/internal/domain"
)

// Storage is an in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	nodes     []domain.Node
	byID      map[string]int
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.nodes = nil
	s.byID = make(map[string]int)
	return nil
}

func (s *Storage) Upsert(_ context.Context, nodes []domain.Node, vectors [][]float64) error {
	if len(nodes) != len(vectors) {
		return errors.New("nodes and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return errors.New("storage not initialized")
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(v), s.dimension)
		}
	}
	for i, n := range nodes {
		vec := make([]float64, len(vectors[i]))
		copy(vec, vectors[i])
		if j, ok := s.byID[n.ID]; ok {
			s.nodes[j] = n
			s.vectors[j] = vec
			continue
		}
		s.byID[n.ID] = len(s.nodes)
		s.nodes = append(s.nodes, n)
		s.vectors = append(s.vectors, vec)
	}
	return nil
}

// Search returns the topK nodes by descending cosine similarity. Ties keep
// insertion order.
func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		return nil, errors.New("topK must be positive")
	}
	if len(s.nodes) > 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), s.dimension)
	}
	idxs := make([]int, len(s.vectors))
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		idxs[i] = i
		scores[i] = Cosine(s.vectors[i], vector)
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.Candidate, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.Candidate{Node: s.nodes[j], Score: scores[j]})
	}
	return results, nil
}

func (s *Storage) Nodes(_ context.Context) ([]domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Node, len(s.nodes))
	copy(out, s.nodes)
	return out, nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.nodes = nil
	s.byID = make(map[string]int)
	return nil
}

func (s *Storage) Close() error { return nil }

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
