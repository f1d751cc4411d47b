package lexical

import (
	"context"
	"testing"

	"docqa/internal/domain"
)

func TestIndex_SearchFindsContent(t *testing.T) {
	idx, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		_ = idx.Close()
	}()

	ctx := context.Background()
	nodes := []domain.Node{
		{ID: "a:0", Title: "Congés", Text: "Les congés payés sont posés dans l'outil RH."},
		{ID: "a:1", Title: "Télétravail", Text: "Le télétravail est possible deux jours par semaine."},
	}
	if err := idx.Add(ctx, nodes); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 nodes, got %d", idx.Len())
	}

	res, err := idx.Search(ctx, "télétravail", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) == 0 {
		t.Fatal("expected a result for télétravail")
	}
	if res[0].Node.ID != "a:1" {
		t.Errorf("first result = %q, want a:1", res[0].Node.ID)
	}
	if res[0].Node.Text != nodes[1].Text {
		t.Errorf("expected full node to be returned")
	}
}

func TestIndex_SearchFindsTitle(t *testing.T) {
	idx, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = idx.Close()
	}()

	ctx := context.Background()
	_ = idx.Add(ctx, []domain.Node{{ID: "x", Title: "Onboarding", Text: "Some body text."}})
	res, err := idx.Search(ctx, "onboarding", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Node.ID != "x" {
		t.Fatalf("expected title match, got %+v", res)
	}
}

func TestIndex_ResetAndLimit(t *testing.T) {
	idx, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = idx.Close()
	}()

	ctx := context.Background()
	_ = idx.Add(ctx, []domain.Node{{ID: "1", Text: "alpha"}, {ID: "2", Text: "alpha beta"}})
	if _, err := idx.Search(ctx, "alpha", 0); err == nil {
		t.Error("expected error for zero limit")
	}
	res, _ := idx.Search(ctx, "alpha", 1)
	if len(res) != 1 {
		t.Fatalf("expected limit to cap results, got %d", len(res))
	}

	if err := idx.Reset(); err != nil {
		t.Fatal(err)
	}
	res, _ = idx.Search(ctx, "alpha", 5)
	if len(res) != 0 || idx.Len() != 0 {
		t.Fatalf("expected empty index after Reset, got %d results", len(res))
	}
}

func TestIndex_ElidedQueryMatchesBareWord(t *testing.T) {
	idx, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = idx.Close()
	}()

	ctx := context.Background()
	_ = idx.Add(ctx, []domain.Node{
		{ID: "install", Title: "Serveur", Text: "Procédure d'installation du serveur."},
		{ID: "logs", Title: "Journaux", Text: "Rotation des journaux applicatifs."},
	})
	res, err := idx.Search(ctx, "Comment faire l'installation ?", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) == 0 || res[0].Node.ID != "install" {
		t.Fatalf("expected elided query to hit the installation passage, got %+v", res)
	}
}

func TestIndex_PluralQueryMatchesSingular(t *testing.T) {
	idx, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = idx.Close()
	}()

	ctx := context.Background()
	_ = idx.Add(ctx, []domain.Node{{ID: "c", Text: "Les congés se posent dans l'outil RH."}})
	res, err := idx.Search(ctx, "congé", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 {
		t.Fatalf("expected stemmed match, got %+v", res)
	}
}
