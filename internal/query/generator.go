package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/prompts"
)

const defaultContextTokens = 3900

// Generator composes an answer by tree summarization: candidate texts are
// packed into prompts that fit the model context, each group is answered, and
// the answers are summarized again until one remains.
type Generator struct {
	completer     domain.Completer
	contextTokens int
}

func NewGenerator(c domain.Completer, contextTokens int) *Generator {
	if contextTokens <= 0 {
		contextTokens = defaultContextTokens
	}
	return &Generator{completer: c, contextTokens: contextTokens}
}

func (g *Generator) Generate(ctx context.Context, question string, candidates []domain.Candidate) (string, error) {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Node.Text
	}
	budget := g.contextTokens - chunker.EstimateTokens(prompts.Response) - chunker.EstimateTokens(prompts.TreeSummarize("", question))

	for {
		groups := pack(texts, budget)
		if len(groups) == 1 {
			answer, err := g.summarize(ctx, question, groups[0])
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(answer) == "" {
				return "", &StageError{Stage: StageGeneration, Err: errors.New("empty answer")}
			}
			return answer, nil
		}
		next := make([]string, 0, len(groups))
		for _, grp := range groups {
			out, err := g.summarize(ctx, question, grp)
			if err != nil {
				return "", err
			}
			next = append(next, out)
		}
		texts = next
	}
}

func (g *Generator) summarize(ctx context.Context, question string, texts []string) (string, error) {
	out, err := g.completer.Chat(ctx, prompts.Response, prompts.TreeSummarize(strings.Join(texts, "\n\n"), question))
	if err != nil {
		return "", &StageError{Stage: StageGeneration, Err: fmt.Errorf("summarize %d passages: %w", len(texts), err)}
	}
	return out, nil
}

// pack groups texts in order so each group fits budget tokens. A group always
// holds one text, and at least two when there is more than one text, so every
// level has fewer groups than it had texts.
func pack(texts []string, budget int) [][]string {
	if len(texts) == 0 {
		return [][]string{nil}
	}
	minPerGroup := 1
	if len(texts) > 1 {
		minPerGroup = 2
	}
	var (
		groups [][]string
		cur    []string
		used   int
	)
	for _, t := range texts {
		n := chunker.EstimateTokens(t)
		if len(cur) >= minPerGroup && used+n > budget {
			groups = append(groups, cur)
			cur, used = nil, 0
		}
		cur = append(cur, t)
		used += n
	}
	return append(groups, cur)
}
