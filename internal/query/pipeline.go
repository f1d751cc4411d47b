// Package query answers questions over the index: retrieve candidates once,
// ask the language model whether they are relevant, then either generate an
// answer from those same candidates or refuse.
package query

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/prompts"
)

// State is the lifecycle position of a question.
type State string

const (
	StateReceived  State = "RECEIVED"
	StateRetrieved State = "RETRIEVED"
	StateValidated State = "VALIDATED"
	StateAnswered  State = "ANSWERED"
	StateRefused   State = "REFUSED"
	StateFailed    State = "FAILED"
)

// Answer is the outcome of one question.
type Answer struct {
	Text       string
	State      State
	Candidates []domain.Candidate
	QueryID    string
}

type CandidateRetriever interface {
	Retrieve(ctx context.Context, question string) ([]domain.Candidate, error)
}

type RelevanceValidator interface {
	IsRelevant(ctx context.Context, question string, candidates []domain.Candidate) (bool, error)
}

type ResponseGenerator interface {
	Generate(ctx context.Context, question string, candidates []domain.Candidate) (string, error)
}

// Pipeline runs one question at a time.
type Pipeline struct {
	mu        sync.Mutex
	retriever CandidateRetriever
	validator RelevanceValidator
	generator ResponseGenerator
	logger    *zap.Logger
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPipeline(r CandidateRetriever, v RelevanceValidator, g ResponseGenerator, opts ...Option) *Pipeline {
	p := &Pipeline{retriever: r, validator: v, generator: g, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ask answers question. Errors are *StageError values except ErrEmptyQuestion.
func (p *Pipeline) Ask(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{State: StateFailed}, ErrEmptyQuestion
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	ans := Answer{State: StateReceived, QueryID: uuid.NewString()}
	log := p.logger.With(zap.String("query_id", ans.QueryID))
	log.Debug("question received", zap.Int("length", len(question)))

	fail := func(stage Stage, err error) (Answer, error) {
		ans.State = StateFailed
		err = stageError(stage, err)
		log.Error("question failed", zap.String("stage", string(stage)), zap.Error(err),
			zap.Duration("took", time.Since(start)))
		return ans, err
	}

	candidates, err := p.retriever.Retrieve(ctx, question)
	if err != nil {
		return fail(StageRetrieval, err)
	}
	ans.Candidates = candidates
	ans.State = StateRetrieved
	log.Debug("candidates retrieved", zap.Int("candidates", len(candidates)))

	relevant, err := p.validator.IsRelevant(ctx, question, candidates)
	if err != nil {
		return fail(StageValidation, err)
	}
	ans.State = StateValidated
	log.Debug("candidates validated", zap.Bool("relevant", relevant))

	if !relevant {
		ans.Text = prompts.Refusal
		ans.State = StateRefused
		log.Info("question refused",
			zap.Int("candidates", len(candidates)),
			zap.Duration("took", time.Since(start)))
		return ans, nil
	}

	text, err := p.generator.Generate(ctx, question, candidates)
	if err != nil {
		return fail(StageGeneration, err)
	}
	ans.Text = text
	ans.State = StateAnswered
	log.Info("question answered",
		zap.Int("candidates", len(candidates)),
		zap.Int("answer_length", len(text)),
		zap.Duration("took", time.Since(start)))
	return ans, nil
}
