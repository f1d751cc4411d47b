package tfidf

import (
	"context"
	"math"
	"testing"
)

func TestEmbedder_RequiresPrepare(t *testing.T) {
	e := NewEmbedder()
	if _, err := e.Embed(context.Background(), "anything"); err == nil {
		t.Fatal("expected error before Prepare")
	}
}

func TestEmbedder_PrepareEmptyCorpus(t *testing.T) {
	if err := NewEmbedder().Prepare(nil); err == nil {
		t.Fatal("expected error for empty corpus")
	}
	if err := NewEmbedder().Prepare([]string{"the and of"}); err == nil {
		t.Fatal("expected error for stopword-only corpus")
	}
}

func TestEmbedder_VectorsAreNormalized(t *testing.T) {
	e := NewEmbedder()
	corpus := []string{
		"Installer le serveur avec docker compose",
		"La sauvegarde quotidienne tourne à minuit",
		"Configure the reverse proxy",
	}
	if err := e.Prepare(corpus); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if e.Dimension() == 0 {
		t.Fatal("expected non-zero dimension")
	}
	v, err := e.Embed(context.Background(), "docker serveur")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-9 {
		t.Errorf("expected unit norm, got %f", math.Sqrt(norm))
	}
}

func TestEmbedder_UnknownTermsGiveZeroVector(t *testing.T) {
	e := NewEmbedder()
	if err := e.Prepare([]string{"alpha beta", "gamma delta"}); err != nil {
		t.Fatal(err)
	}
	v, err := e.Embed(context.Background(), "zeta")
	if err != nil {
		t.Fatal(err)
	}
	for i, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %f at %d", x, i)
		}
	}
}

func TestEmbedder_Deterministic(t *testing.T) {
	corpus := []string{"sauvegarde nocturne", "rotation des journaux", "sauvegarde des journaux"}
	a, b := NewEmbedder(), NewEmbedder()
	if err := a.Prepare(corpus); err != nil {
		t.Fatal(err)
	}
	if err := b.Prepare(corpus); err != nil {
		t.Fatal(err)
	}
	va, _ := a.Embed(context.Background(), "sauvegarde journaux")
	vb, _ := b.Embed(context.Background(), "sauvegarde journaux")
	if len(va) != len(vb) {
		t.Fatalf("dimension mismatch %d vs %d", len(va), len(vb))
	}
	for i := range va {
		if va[i] != vb[i] {
			t.Fatalf("embeddings differ at %d", i)
		}
	}
}

func TestTokenizer_SplitsElidedForms(t *testing.T) {
	tok := NewTokenizer(Stopwords)
	got := tok.Tokens("Procédure d'installation du serveur, qu’il faut suivre.")
	want := []string{"procédure", "installation", "serveur", "faut", "suivre"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tokens = %q, want %q", got, want)
		}
	}
}

func TestEmbedder_ElidedQueryMatchesBareWord(t *testing.T) {
	e := NewEmbedder()
	corpus := []string{
		"Procédure d'installation du serveur.",
		"Rotation des journaux applicatifs.",
	}
	if err := e.Prepare(corpus); err != nil {
		t.Fatal(err)
	}
	q, err := e.Embed(context.Background(), "Comment faire l'installation ?")
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := e.Embed(context.Background(), corpus[0])
	other, _ := e.Embed(context.Background(), corpus[1])

	dot := func(a, b []float64) float64 {
		s := 0.0
		for i := range a {
			s += a[i] * b[i]
		}
		return s
	}
	if dot(q, doc) <= 0 {
		t.Fatal("expected the elided query to share a term with the installation passage")
	}
	if dot(q, other) != 0 {
		t.Errorf("unexpected overlap with unrelated passage")
	}
}
