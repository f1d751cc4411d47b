package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/prompts"
)

// Validator asks the language model whether the candidates can answer the
// question.
type Validator struct {
	completer domain.Completer
}

func NewValidator(c domain.Completer) *Validator {
	return &Validator{completer: c}
}

func (v *Validator) IsRelevant(ctx context.Context, question string, candidates []domain.Candidate) (bool, error) {
	prompt := prompts.Validation(question, PassageContext(candidates))
	raw, err := v.completer.Complete(ctx, prompt)
	if err != nil {
		return false, &StageError{Stage: StageValidation, Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return false, &StageError{Stage: StageValidation, Err: errors.New("empty verdict")}
	}
	return ParseVerdict(raw), nil
}

// PassageContext numbers candidates from 1 as "Passage i:" blocks separated
// by a blank line.
func PassageContext(candidates []domain.Candidate) string {
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = fmt.Sprintf("Passage %d:\n%s", i+1, c.Node.Text)
	}
	return strings.Join(parts, "\n\n")
}

// ParseVerdict reports whether raw contains "OUI", ignoring case and position.
// Anything else, including malformed output, is a negative verdict.
func ParseVerdict(raw string) bool {
	return strings.Contains(strings.ToUpper(strings.TrimSpace(raw)), "OUI")
}
