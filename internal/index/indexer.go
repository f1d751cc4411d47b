// Package index builds the searchable node index from a Markdown corpus and
// answers similarity queries against it.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/lexical"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore"
)

const overviewSentences = 3

// ErrEmptyIndex is returned by Load when the store holds no nodes.
var ErrEmptyIndex = errors.New("index is empty")

// Stats describes the indexed corpus.
type Stats struct {
	Documents  int    `json:"documents"`
	Sections   int    `json:"sections"`
	Nodes      int    `json:"nodes"`
	Collection string `json:"collection"`
}

// Indexer owns the embedder, the vector store and the lexical fallback index.
type Indexer struct {
	chunker    domain.Chunker
	windower   *chunker.Windower
	embedder   embedding.Embedder
	store      vectorstore.Storage
	lexical    *lexical.Index
	summarizer *summarizer.FrequencySummarizer
	batchSize  int
	collection string
	logger     *zap.Logger
	stats      Stats
	overview   string
}

type Option func(*Indexer)

func WithLogger(l *zap.Logger) Option {
	return func(x *Indexer) {
		if l != nil {
			x.logger = l
		}
	}
}

// WithBatchSize sets how many node texts go into one embedding request.
func WithBatchSize(n int) Option {
	return func(x *Indexer) { x.batchSize = n }
}

func WithCollection(name string) Option {
	return func(x *Indexer) { x.collection = name }
}

func New(c domain.Chunker, w *chunker.Windower, e embedding.Embedder, store vectorstore.Storage, opts ...Option) (*Indexer, error) {
	lex, err := lexical.New()
	if err != nil {
		return nil, err
	}
	x := &Indexer{
		chunker:    c,
		windower:   w,
		embedder:   e,
		store:      store,
		lexical:    lex,
		summarizer: summarizer.NewFrequencySummarizer(),
		batchSize:  1,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	x.stats.Collection = x.collection
	return x, nil
}

func (x *Indexer) replace(ctx context.Context, nodes []domain.Node, vectors [][]float64) error {
	if r, ok := x.store.(vectorstore.Replacer); ok {
		if err := r.Replace(ctx, len(vectors[0]), nodes, vectors); err != nil {
			return fmt.Errorf("failed to replace vector store contents: %w", err)
		}
		return nil
	}
	if err := x.store.Init(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("failed to init vector store: %w", err)
	}
	if err := x.store.Upsert(ctx, nodes, vectors); err != nil {
		return fmt.Errorf("failed to store vectors: %w", err)
	}
	return nil
}

// BuildFromDir loads every Markdown file under dir and indexes it.
func (x *Indexer) BuildFromDir(ctx context.Context, dir string) (Stats, error) {
	docs, err := chunker.LoadDirectory(ctx, dir)
	if err != nil {
		return Stats{}, err
	}
	return x.Build(ctx, docs)
}

// Build replaces the stored index with the given documents.
func (x *Indexer) Build(ctx context.Context, docs []domain.Document) (Stats, error) {
	start := time.Now()
	var (
		nodes    []domain.Node
		sections int
	)
	for _, d := range docs {
		secs := x.chunker.Chunk(d)
		sections += len(secs)
		nodes = append(nodes, x.windower.Nodes(d.ID, secs)...)
	}
	if len(nodes) == 0 {
		return Stats{}, errors.New("corpus produced no nodes")
	}
	x.logger.Info("chunked corpus",
		zap.Int("documents", len(docs)),
		zap.Int("sections", sections),
		zap.Int("nodes", len(nodes)))

	texts := embeddingTexts(nodes)
	if err := x.embedder.Prepare(texts); err != nil {
		return Stats{}, fmt.Errorf("failed to prepare embedder: %w", err)
	}
	vectors, err := embedding.EmbedAll(ctx, x.embedder, texts, x.batchSize)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to embed nodes: %w", err)
	}
	if err := x.replace(ctx, nodes, vectors); err != nil {
		return Stats{}, err
	}
	if err := x.lexical.Reset(); err != nil {
		return Stats{}, err
	}
	if err := x.lexical.Add(ctx, nodes); err != nil {
		return Stats{}, err
	}

	x.stats = Stats{Documents: len(docs), Sections: sections, Nodes: len(nodes), Collection: x.collection}
	x.overview = x.summarizer.Summarize(texts, overviewSentences)
	x.logger.Info("index built",
		zap.String("embedder", x.embedder.Name()),
		zap.Int("dimension", len(vectors[0])),
		zap.Duration("took", time.Since(start)))
	return x.stats, nil
}

// Load reopens a persisted index. The embedder is re-prepared from the stored
// node texts so query vectors match the stored ones.
func (x *Indexer) Load(ctx context.Context) (Stats, error) {
	nodes, err := x.store.Nodes(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read stored nodes: %w", err)
	}
	if len(nodes) == 0 {
		return Stats{}, ErrEmptyIndex
	}
	texts := embeddingTexts(nodes)
	if err := x.embedder.Prepare(texts); err != nil {
		return Stats{}, fmt.Errorf("failed to prepare embedder: %w", err)
	}
	if d, ok := x.store.(interface{ Dimension() int }); ok && x.embedder.Dimension() > 0 && d.Dimension() != x.embedder.Dimension() {
		return Stats{}, fmt.Errorf("stored dimension %d does not match embedder dimension %d, rebuild the index",
			d.Dimension(), x.embedder.Dimension())
	}
	if err := x.lexical.Reset(); err != nil {
		return Stats{}, err
	}
	if err := x.lexical.Add(ctx, nodes); err != nil {
		return Stats{}, err
	}
	x.stats = statsFromNodes(nodes, x.collection)
	x.overview = x.summarizer.Summarize(texts, overviewSentences)
	x.logger.Info("index loaded",
		zap.Int("documents", x.stats.Documents),
		zap.Int("nodes", x.stats.Nodes))
	return x.stats, nil
}

// Search returns the k nodes most similar to query. When the query shares no
// vocabulary with the embedder, lexical matches are returned instead.
func (x *Indexer) Search(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	var res []domain.Candidate
	if !isZero(vec) {
		res, err = x.store.Search(ctx, vec, k)
		if err != nil {
			return nil, fmt.Errorf("vector search failed: %w", err)
		}
		if !allZero(res) {
			return res, nil
		}
	}
	lex, err := x.lexical.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if len(lex) > 0 {
		x.logger.Debug("lexical fallback", zap.Int("hits", len(lex)))
		return lex, nil
	}
	return res, nil
}

func (x *Indexer) Stats() Stats { return x.stats }

// Overview returns a few representative sentences of the indexed corpus.
func (x *Indexer) Overview() string { return x.overview }

func (x *Indexer) Close() error {
	return errors.Join(x.lexical.Close(), x.store.Close())
}

func embeddingTexts(nodes []domain.Node) []string {
	texts := make([]string, len(nodes))
	for i, n := range nodes {
		texts[i] = embedding.PlainText(n.Text)
	}
	return texts
}

// statsFromNodes reconstructs corpus counts from stored nodes. Consecutive
// nodes of one source and title are counted as one section.
func statsFromNodes(nodes []domain.Node, collection string) Stats {
	sources := make(map[string]struct{})
	sections := 0
	for i, n := range nodes {
		sources[n.Source] = struct{}{}
		if i == 0 || n.Source != nodes[i-1].Source || n.Title != nodes[i-1].Title {
			sections++
		}
	}
	return Stats{Documents: len(sources), Sections: sections, Nodes: len(nodes), Collection: collection}
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func allZero(res []domain.Candidate) bool {
	for _, r := range res {
		if r.Score > 1e-9 {
			return false
		}
	}
	return true
}
