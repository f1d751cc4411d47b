package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"docqa/internal/domain"
	"docqa/internal/query"
)

type stubAsker struct {
	ans   query.Answer
	err   error
	calls int
}

func (s *stubAsker) Ask(_ context.Context, _ string) (query.Answer, error) {
	s.calls++
	return s.ans, s.err
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func typeQuestion(m Model, q string) Model {
	m.input.SetValue(q)
	return m
}

func TestModel_EnterAsksAndShowsAnswer(t *testing.T) {
	asker := &stubAsker{ans: query.Answer{
		Text:  "Deux jours par semaine.",
		State: query.StateAnswered,
		Candidates: []domain.Candidate{
			{Node: domain.Node{Source: "hr.md", Title: "Télétravail", Text: "Le télétravail est autorisé. Il faut prévenir."}},
			{Node: domain.Node{Source: "hr.md", Title: "Congés", Text: "Les congés se posent."}},
		},
	}}
	m := typeQuestion(sized(New(context.Background(), asker, "2 documents", "")), "télétravail ?")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if !m.busy || cmd == nil {
		t.Fatal("expected model to be busy with a pending command")
	}
	if m.input.Value() != "" {
		t.Error("expected input to be cleared")
	}

	// Enter while busy is ignored.
	if _, again := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); again != nil {
		t.Error("expected no command while busy")
	}

	msg := m.ask("télétravail ?")()
	next, _ = m.Update(msg)
	m = next.(Model)
	if m.busy {
		t.Error("expected busy to clear after answer")
	}
	if asker.calls != 1 {
		t.Errorf("expected one Ask, got %d", asker.calls)
	}
	out := m.renderAnswer()
	if !strings.Contains(out, "Deux jours par semaine.") || !strings.Contains(out, "Source 1/2") {
		t.Errorf("answer or source missing: %q", out)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.cursor != 1 || !strings.Contains(m.renderAnswer(), "Congés") {
		t.Errorf("down should select the next source")
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if next.(Model).cursor != 0 {
		t.Error("up should wrap back to the first source")
	}
}

func TestModel_StageErrorInStatus(t *testing.T) {
	m := sized(New(context.Background(), &stubAsker{}, "", ""))
	next, _ := m.Update(answerMsg{question: "q", err: &query.StageError{Stage: query.StageGeneration, Err: errors.New("timeout")}})
	m = next.(Model)
	if !strings.HasPrefix(m.status, "Error (generation)") {
		t.Errorf("unexpected status %q", m.status)
	}
	if m.renderAnswer() != "No answer yet." {
		t.Error("expected no answer after error")
	}
}

func TestModel_BlankQuestionIgnored(t *testing.T) {
	asker := &stubAsker{}
	m := typeQuestion(sized(New(context.Background(), asker, "", "")), "   ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || next.(Model).busy {
		t.Error("blank question must not be asked")
	}
}

func TestHighlightBestSentence(t *testing.T) {
	text := "Les congés se posent. Le télétravail est autorisé."
	out := highlightBestSentence(text, "télétravail")
	if !strings.Contains(out, "Les congés se posent.") || !strings.Contains(out, "télétravail est autorisé.") {
		t.Errorf("sentences lost: %q", out)
	}
	if highlightBestSentence("", "q") != "" {
		t.Error("empty text should be returned unchanged")
	}
}

func TestModel_ShowsOverviewBeforeFirstAnswer(t *testing.T) {
	m := sized(New(context.Background(), &stubAsker{}, "", "Le télétravail est autorisé."))
	if m.renderAnswer() != "Le télétravail est autorisé." {
		t.Errorf("unexpected initial content %q", m.renderAnswer())
	}
}

type ctxAsker struct{ err error }

func (a *ctxAsker) Ask(ctx context.Context, _ string) (query.Answer, error) {
	a.err = ctx.Err()
	return query.Answer{}, a.err
}

func TestModel_AskUsesProgramContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	asker := &ctxAsker{}
	m := sized(New(ctx, asker, "", ""))

	msg := m.ask("q")()
	if !errors.Is(asker.err, context.Canceled) {
		t.Fatalf("asker saw ctx error %v, want context.Canceled", asker.err)
	}
	if got, ok := msg.(answerMsg); !ok || !errors.Is(got.err, context.Canceled) {
		t.Fatalf("unexpected message %#v", msg)
	}
}
