package sqlite

import (
	"context"
	"os"
	"testing"

	"docqa/internal/domain"
)

func TestStorage_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, dir, "docs")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Dimension() != 0 {
		t.Fatalf("expected new collection to have no dimension, got %d", s.Dimension())
	}
	if err := s.Init(ctx, 2); err != nil {
		t.Fatal(err)
	}
	nodes := []domain.Node{
		{ID: "d:0", Source: "a.md", Title: "A", Index: 0, Text: "first"},
		{ID: "d:1", Source: "a.md", Title: "B", Index: 1, Text: "second"},
	}
	if err := s.Upsert(ctx, nodes, [][]float64{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(Path(dir, "docs")); err != nil {
		t.Fatalf("expected database file: %v", err)
	}

	reopened, err := Open(ctx, dir, "docs")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if reopened.Dimension() != 2 {
		t.Errorf("expected dimension 2, got %d", reopened.Dimension())
	}
	got, err := reopened.Nodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != nodes[0] || got[1] != nodes[1] {
		t.Fatalf("nodes not restored in order: %+v", got)
	}
	res, err := reopened.Search(ctx, []float64{0.1, 0.9}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Node.ID != "d:1" {
		t.Fatalf("unexpected search result: %+v", res)
	}
}

func TestStorage_InitResetsCollection(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, t.TempDir(), "docs")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_ = s.Init(ctx, 1)
	_ = s.Upsert(ctx, []domain.Node{{ID: "x", Text: "x"}}, [][]float64{{1}})
	if err := s.Init(ctx, 3); err != nil {
		t.Fatal(err)
	}
	nodes, _ := s.Nodes(ctx)
	if len(nodes) != 0 {
		t.Fatalf("expected empty collection after Init, got %d", len(nodes))
	}
	if err := s.Upsert(ctx, []domain.Node{{ID: "y"}}, [][]float64{{1}}); err == nil {
		t.Error("expected dimension mismatch after re-init")
	}
}

func TestStorage_SearchEmptyCollection(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, t.TempDir(), "docs")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	res, err := s.Search(ctx, []float64{1}, 3)
	if err != nil || len(res) != 0 {
		t.Fatalf("expected no results and no error, got %v %v", res, err)
	}
}

func TestOpen_RequiresCollection(t *testing.T) {
	if _, err := Open(context.Background(), t.TempDir(), ""); err == nil {
		t.Fatal("expected error for empty collection")
	}
}

func TestVectorEncoding(t *testing.T) {
	v := []float64{0, -1.5, 3.25}
	got, err := decodeVector(encodeVector(v))
	if err != nil {
		t.Fatal(err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Fatalf("value %d: got %f want %f", i, got[i], v[i])
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestStorage_FailedReplaceKeepsCollection(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(ctx, dir, "docs")
	if err != nil {
		t.Fatal(err)
	}
	old := []domain.Node{{ID: "old", Title: "Old", Text: "kept"}}
	if err := s.Replace(ctx, 2, old, [][]float64{{1, 0}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	// The second vector has the wrong width, so the insert fails after the
	// reset and the first insert already ran inside the transaction.
	fresh := []domain.Node{{ID: "a", Text: "a"}, {ID: "b", Text: "b"}}
	if err := s.Replace(ctx, 3, fresh, [][]float64{{1, 0, 0}, {1}}); err == nil {
		t.Fatal("expected dimension mismatch")
	}
	if s.Dimension() != 2 {
		t.Errorf("dimension = %d after failed replace, want 2", s.Dimension())
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(ctx, dir, "docs")
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	nodes, _ := reopened.Nodes(ctx)
	if reopened.Dimension() != 2 || len(nodes) != 1 || nodes[0].ID != "old" {
		t.Fatalf("expected previous collection on disk, got dim %d nodes %+v", reopened.Dimension(), nodes)
	}
}
