package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/index"
	"docqa/internal/query"
)

type mockAsker struct {
	ans      query.Answer
	err      error
	question string
}

func (m *mockAsker) Ask(_ context.Context, q string) (query.Answer, error) {
	m.question = q
	return m.ans, m.err
}

type mockStats struct{ stats index.Stats }

func (m mockStats) Stats() index.Stats { return m.stats }

func newTestServer(a Asker) *httptest.Server {
	srv := NewServer(a, mockStats{index.Stats{Documents: 2, Sections: 5, Nodes: 6, Collection: "docs"}}, ":0", zap.NewNop())
	return httptest.NewServer(srv.Handler())
}

func postAsk(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/api/ask", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHandleAsk_Answered(t *testing.T) {
	asker := &mockAsker{ans: query.Answer{
		Text:    "Deux jours.",
		State:   query.StateAnswered,
		QueryID: "q-1",
		Candidates: []domain.Candidate{
			{Node: domain.Node{Source: "docs/hr.md", Title: "Télétravail"}, Score: 0.8},
		},
	}}
	ts := newTestServer(asker)
	defer ts.Close()

	resp := postAsk(t, ts.URL, `{"question":"Combien de jours ?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var out askResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if asker.question != "Combien de jours ?" {
		t.Errorf("question not forwarded: %q", asker.question)
	}
	if out.Answer != "Deux jours." || out.State != "ANSWERED" || out.QueryID != "q-1" {
		t.Errorf("unexpected response %+v", out)
	}
	if len(out.Sources) != 1 || out.Sources[0].Title != "Télétravail" || out.Sources[0].Score != 0.8 {
		t.Errorf("unexpected sources %+v", out.Sources)
	}
}

func TestHandleAsk_StageErrorIsBadGateway(t *testing.T) {
	ts := newTestServer(&mockAsker{err: &query.StageError{Stage: query.StageValidation, Err: errors.New("timeout")}})
	defer ts.Close()

	resp := postAsk(t, ts.URL, `{"question":"q"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var out map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out["stage"] != "validation" || out["error"] == "" {
		t.Errorf("unexpected body %v", out)
	}
}

func TestHandleAsk_BadRequests(t *testing.T) {
	ts := newTestServer(&mockAsker{err: query.ErrEmptyQuestion})
	defer ts.Close()

	if resp := postAsk(t, ts.URL, `{"question":"  "}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank question: got %d", resp.StatusCode)
	}
	if resp := postAsk(t, ts.URL, `not json`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid body: got %d", resp.StatusCode)
	}
}

func TestHandleStatsAndHealth(t *testing.T) {
	ts := newTestServer(&mockAsker{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var stats index.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Nodes != 6 || stats.Collection != "docs" {
		t.Errorf("unexpected stats %+v", stats)
	}

	health, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("health: got %d", health.StatusCode)
	}
}

func TestServer_StopBeforeStart(t *testing.T) {
	srv := NewServer(&mockAsker{}, mockStats{}, "127.0.0.1:0", zap.NewNop())
	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("Start after Stop = %v, want http.ErrServerClosed", err)
	}
}

func TestServer_StopWhileServing(t *testing.T) {
	srv := NewServer(&mockAsker{}, mockStats{}, "127.0.0.1:0", zap.NewNop())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("Start returned %v, want http.ErrServerClosed", err)
	}
}
